package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"sprintreport/config"
)

// MaxBatchSize は作業項目一括取得APIで一度に指定できるIDの上限です
const MaxBatchSize = 200

// StatusError は成功以外のHTTPステータスを表します
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s失敗 (status=%d): %s", e.Op, e.StatusCode, e.Body)
}

// DevOpsClient はAzure DevOps REST APIとのやり取りを処理します
type DevOpsClient struct {
	config  *config.Config
	baseURL string
	client  *http.Client
}

// Option はクライアント生成時のオプションです
type Option func(*DevOpsClient)

// WithHTTPClient は利用する http.Client を差し替えます
func WithHTTPClient(c *http.Client) Option {
	return func(d *DevOpsClient) {
		d.client = c
	}
}

// WithBaseURL は組織URLを差し替えます (テスト用)
func WithBaseURL(u string) Option {
	return func(d *DevOpsClient) {
		d.baseURL = strings.TrimRight(u, "/")
	}
}

// NewDevOpsClient は新しいAzure DevOpsクライアントを作成します
func NewDevOpsClient(cfg *config.Config, opts ...Option) *DevOpsClient {
	d := &DevOpsClient{
		config:  cfg,
		baseURL: strings.TrimRight(cfg.OrgURL, "/"),
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *DevOpsClient) projectURL() string {
	return d.baseURL + "/" + url.PathEscape(d.config.Project)
}

// チーム未指定の場合はプロジェクトの既定チームになります
func (d *DevOpsClient) teamURL() string {
	if d.config.Team == "" {
		return d.projectURL()
	}
	return d.projectURL() + "/" + url.PathEscape(d.config.Team)
}

func (d *DevOpsClient) apiURL(prefix, path string, q url.Values) string {
	if q == nil {
		q = url.Values{}
	}
	q.Set("api-version", d.config.APIVersion)
	return prefix + path + "?" + q.Encode()
}

// doJSON はリクエストを1回だけ送信し、レスポンスJSONを out にデコードします
func (d *DevOpsClient) doJSON(ctx context.Context, op, method, u string, body, out interface{}) error {
	var r io.Reader
	if body != nil {
		payloadBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("JSONエンコードエラー: %w", err)
		}
		r = bytes.NewReader(payloadBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return fmt.Errorf("リクエスト作成エラー: %w", err)
	}

	req.SetBasicAuth(d.config.User, d.config.PAT)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: リクエスト送信エラー: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: レスポンス解析エラー: %w", op, err)
	}
	return nil
}

// CheckAuth は認証情報とプロジェクト/チーム設定をチェックします
func (d *DevOpsClient) CheckAuth(ctx context.Context) error {
	_, err := d.ListIterations(ctx)
	return err
}

// ListIterations はチームに見えるすべてのイテレーションを取得します
func (d *DevOpsClient) ListIterations(ctx context.Context) ([]IterationDTO, error) {
	u := d.apiURL(d.teamURL(), "/_apis/work/teamsettings/iterations", nil)

	var result iterationListResponse
	if err := d.doJSON(ctx, "イテレーション一覧取得", http.MethodGet, u, nil, &result); err != nil {
		return nil, err
	}
	return result.Value, nil
}

// CurrentIterations は現在期間のイテレーションを取得します
func (d *DevOpsClient) CurrentIterations(ctx context.Context) ([]IterationDTO, error) {
	q := url.Values{}
	q.Set("$timeframe", "current")
	u := d.apiURL(d.teamURL(), "/_apis/work/teamsettings/iterations", q)

	var result iterationListResponse
	if err := d.doJSON(ctx, "現在のイテレーション取得", http.MethodGet, u, nil, &result); err != nil {
		return nil, err
	}
	return result.Value, nil
}

// IterationCapacities はイテレーションのメンバー別キャパシティを取得します
func (d *DevOpsClient) IterationCapacities(ctx context.Context, iterationID string) ([]CapacityDTO, error) {
	if iterationID == "" {
		return nil, fmt.Errorf("イテレーションIDが空です")
	}
	path := "/_apis/work/teamsettings/iterations/" + url.PathEscape(iterationID) + "/capacities"
	u := d.apiURL(d.teamURL(), path, nil)

	var result capacityResponse
	if err := d.doJSON(ctx, "キャパシティ取得", http.MethodGet, u, nil, &result); err != nil {
		return nil, err
	}
	return result.members(), nil
}

// QueryWIQL はWIQLクエリを1ページ分実行します。token が空でなければ続きを取得します
func (d *DevOpsClient) QueryWIQL(ctx context.Context, query, token string) (*WiqlPage, error) {
	q := url.Values{}
	if token != "" {
		q.Set("continuationToken", token)
	}
	u := d.apiURL(d.teamURL(), "/_apis/wit/wiql", q)

	var result wiqlResponse
	if err := d.doJSON(ctx, "WIQLクエリ", http.MethodPost, u, wiqlRequest{Query: query}, &result); err != nil {
		return nil, err
	}

	page := &WiqlPage{
		IDs:               make([]int, 0, len(result.WorkItems)),
		ContinuationToken: result.ContinuationToken,
	}
	for _, ref := range result.WorkItems {
		page.IDs = append(page.IDs, ref.ID)
	}
	return page, nil
}

// WorkItemsBatch はIDを指定して作業項目をすべてのフィールド・リレーション付きで取得します
func (d *DevOpsClient) WorkItemsBatch(ctx context.Context, ids []int) ([]WorkItemDTO, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxBatchSize {
		return nil, fmt.Errorf("一度に取得できる作業項目は %d 件までです (指定: %d 件)", MaxBatchSize, len(ids))
	}

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	q := url.Values{}
	q.Set("ids", strings.Join(parts, ","))
	q.Set("$expand", "all")
	u := d.apiURL(d.projectURL(), "/_apis/wit/workitems", q)

	var result workItemsBatchResponse
	if err := d.doJSON(ctx, "作業項目一括取得", http.MethodGet, u, nil, &result); err != nil {
		return nil, err
	}
	return result.Value, nil
}

// UpdatesPageSize は更新履歴1ページあたりの件数です
const UpdatesPageSize = 200

// WorkItemUpdates は作業項目の更新履歴をすべて取得します。
// 履歴は $top/$skip でページ分割されるため、短いページが返るまで続けて取得します
func (d *DevOpsClient) WorkItemUpdates(ctx context.Context, id int) ([]UpdateDTO, error) {
	path := "/_apis/wit/workItems/" + strconv.Itoa(id) + "/updates"

	var all []UpdateDTO
	for skip := 0; ; skip += UpdatesPageSize {
		q := url.Values{}
		q.Set("$top", strconv.Itoa(UpdatesPageSize))
		q.Set("$skip", strconv.Itoa(skip))
		u := d.apiURL(d.projectURL(), path, q)

		var result updatesResponse
		if err := d.doJSON(ctx, "更新履歴取得", http.MethodGet, u, nil, &result); err != nil {
			return nil, err
		}
		all = append(all, result.Value...)
		if len(result.Value) < UpdatesPageSize {
			return all, nil
		}
	}
}
