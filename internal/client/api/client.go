package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/nvoropaev/traincache/pkg/api"
)

// ErrWorkspaceAccessDenied indicates the backend rejected the request
// for the active workspace (403/404). The workspace context reacts by
// clearing the selection.
var ErrWorkspaceAccessDenied = errors.New("workspace access denied")

// TokenProvider supplies the bearer token for outgoing requests
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// WorkspaceProvider supplies the active workspace id for the
// X-Workspace-Id header
type WorkspaceProvider interface {
	GetCurrentWorkspaceID() string
}

// Client представляет HTTP клиент для взаимодействия с бекендом.
// Бекенд - черный ящик: Express/Prisma REST API, отдающий JSON.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenProvider
	workspaces WorkspaceProvider
}

// NewClient создает новый API клиент. tokens и workspaces могут быть
// nil - тогда соответствующие заголовки не проставляются.
func NewClient(baseURL string, tokens TokenProvider, workspaces WorkspaceProvider) *Client {
	return &Client{
		baseURL:    baseURL,
		tokens:     tokens,
		workspaces: workspaces,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// ListTags получает все теги активного workspace
func (c *Client) ListTags(ctx context.Context) ([]api.Tag, error) {
	var resp []api.Tag
	if err := c.doRequest(ctx, http.MethodGet, "/api/tags", nil, &resp); err != nil {
		return nil, fmt.Errorf("list tags request failed: %w", err)
	}
	return resp, nil
}

// ListExercices получает все упражнения активного workspace
func (c *Client) ListExercices(ctx context.Context) ([]api.Exercice, error) {
	var resp []api.Exercice
	if err := c.doRequest(ctx, http.MethodGet, "/api/exercices", nil, &resp); err != nil {
		return nil, fmt.Errorf("list exercices request failed: %w", err)
	}
	return resp, nil
}

// ListEntrainements получает все тренировки активного workspace
func (c *Client) ListEntrainements(ctx context.Context) ([]api.Entrainement, error) {
	var resp []api.Entrainement
	if err := c.doRequest(ctx, http.MethodGet, "/api/entrainements", nil, &resp); err != nil {
		return nil, fmt.Errorf("list entrainements request failed: %w", err)
	}
	return resp, nil
}

// ListEchauffements получает все разминки активного workspace
func (c *Client) ListEchauffements(ctx context.Context) ([]api.Echauffement, error) {
	var resp []api.Echauffement
	if err := c.doRequest(ctx, http.MethodGet, "/api/echauffements", nil, &resp); err != nil {
		return nil, fmt.Errorf("list echauffements request failed: %w", err)
	}
	return resp, nil
}

// ListSituations получает все ситуации/матчи активного workspace
func (c *Client) ListSituations(ctx context.Context) ([]api.SituationMatch, error) {
	var resp []api.SituationMatch
	if err := c.doRequest(ctx, http.MethodGet, "/api/situations-matchs", nil, &resp); err != nil {
		return nil, fmt.Errorf("list situations request failed: %w", err)
	}
	return resp, nil
}

// GetWorkspacePreload получает все коллекции workspace одним запросом
func (c *Client) GetWorkspacePreload(ctx context.Context, workspaceID string) (*api.PreloadResponse, error) {
	var resp api.PreloadResponse
	path := fmt.Sprintf("/api/workspaces/%s/preload", workspaceID)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("preload request failed: %w", err)
	}
	return &resp, nil
}

// GetDashboardStats получает агрегированную статистику workspace
func (c *Client) GetDashboardStats(ctx context.Context) (*api.DashboardStats, error) {
	var resp api.DashboardStats
	if err := c.doRequest(ctx, http.MethodGet, "/api/dashboard/stats", nil, &resp); err != nil {
		return nil, fmt.Errorf("dashboard stats request failed: %w", err)
	}
	return &resp, nil
}

// GetSyncVersions получает снимок "last modified" меток по типам
// сущностей активного workspace
func (c *Client) GetSyncVersions(ctx context.Context) (*api.SyncVersions, error) {
	var resp api.SyncVersions
	if err := c.doRequest(ctx, http.MethodGet, "/api/sync/versions", nil, &resp); err != nil {
		return nil, fmt.Errorf("sync versions request failed: %w", err)
	}
	return &resp, nil
}

// GetMyWorkspaces получает workspaces, доступные пользователю.
// Запрос повторяется с фиксированным backoff на транзиентных ошибках:
// он выполняется на старте клиента, когда сеть может быть еще не
// готова.
func (c *Client) GetMyWorkspaces(ctx context.Context) ([]api.Workspace, error) {
	var resp []api.Workspace

	backoff := retry.WithMaxRetries(2, retry.NewConstant(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp = nil
		if err := c.doRequest(ctx, http.MethodGet, "/api/workspaces/me", nil, &resp); err != nil {
			if errors.Is(err, ErrWorkspaceAccessDenied) {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("workspaces request failed: %w", err)
	}

	return resp, nil
}

// doRequest выполняет HTTP запрос с заголовками Authorization и
// X-Workspace-Id
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.tokens != nil {
		if token, err := c.tokens.Token(ctx); err == nil && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	if c.workspaces != nil {
		if workspaceID := c.workspaces.GetCurrentWorkspaceID(); workspaceID != "" {
			req.Header.Set("X-Workspace-Id", workspaceID)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w (status %d)", ErrWorkspaceAccessDenied, resp.StatusCode)
		}

		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	// Декодируем успешный ответ
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
