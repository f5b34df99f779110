package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
)

// RelayService は内部ストレージエンドポイントへのファイル転送インターフェース。
// 応募受付サービスからファイル単位で呼び出される。
type RelayService interface {
	// RelayFile は1ファイルを指定応募のIDに紐づけて転送し、
	// 保存先の公開パス（/uploads/xxx）を返す。
	RelayFile(ctx context.Context, applicationID string, file *Incoming) (string, error)
}

// FailedUpload は中継に失敗した添付の情報。応募レスポンスに含めて通知する。
type FailedUpload struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// HTTPRelay はHTTP経由でアップロードエンドポイントへ転送するRelayService実装。
type HTTPRelay struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string // テスト用にエンドポイントを差し替え可能
}

// NewHTTPRelay はHTTPRelayの新しいインスタンスを生成する。
func NewHTTPRelay(httpClient *http.Client, logger *slog.Logger, baseURL string) *HTTPRelay {
	return &HTTPRelay{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
	}
}

// RelayFile はmultipartリクエストを構築してアップロードエンドポイントへPOSTし、
// レスポンスから保存先の公開パスを読み取って返す。
// 2xx以外のレスポンスはエラーとして返す（呼び出し元が部分失敗として記録する）。
func (r *HTTPRelay) RelayFile(ctx context.Context, applicationID string, file *Incoming) (string, error) {
	reqURL, err := url.Parse(r.baseURL + "/api/upload")
	if err != nil {
		return "", fmt.Errorf("中継先URLのパースに失敗しました: %w", err)
	}
	q := reqURL.Query()
	q.Set("applicationId", applicationID)
	reqURL.RawQuery = q.Encode()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(file.Field, file.Filename)
	if err != nil {
		return "", fmt.Errorf("multipartの構築に失敗しました: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return "", fmt.Errorf("multipartの書き込みに失敗しました: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("multipartのクローズに失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), &body)
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Error("アップロード中継の呼び出しに失敗しました",
			slog.String("error", err.Error()),
			slog.String("application_id", applicationID),
			slog.String("field", file.Field),
		)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// ボディはログ用に先頭だけ読む
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		r.logger.Error("アップロード中継がエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("application_id", applicationID),
			slog.String("field", file.Field),
			slog.String("body", string(snippet)),
		)
		return "", fmt.Errorf("アップロード中継がステータス %d を返しました", resp.StatusCode)
	}

	var relayResp struct {
		Files []struct {
			FilePath string `json:"filePath"`
		} `json:"files"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&relayResp); err != nil {
		return "", fmt.Errorf("中継レスポンスの解析に失敗しました: %w", err)
	}
	if len(relayResp.Files) == 0 {
		return "", fmt.Errorf("中継レスポンスに保存済みファイルが含まれていません")
	}

	return relayResp.Files[0].FilePath, nil
}

var _ RelayService = (*HTTPRelay)(nil)
