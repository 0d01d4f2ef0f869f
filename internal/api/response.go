// Package api はHTTPレスポンスの共通エンベロープとヘルスチェックを提供します。
package api

// Response は全エンドポイント共通のレスポンスエンベロープです。
// 互換性のため { status, message, data, error } の形をすべての操作で維持します。
type Response struct {
	Status  int     `json:"status"`
	Message string  `json:"message"`
	Data    any     `json:"data"`
	Error   *string `json:"error"`
}

// NewSuccess は成功レスポンスを作成します。error は常に null です。
func NewSuccess(status int, data any, message string) Response {
	if data == nil {
		data = []any{}
	}
	return Response{
		Status:  status,
		Message: message,
		Data:    data,
		Error:   nil,
	}
}

// NewError は失敗レスポンスを作成します。data は常に空配列です。
func NewError(status int, message string) Response {
	return newErrorWithDetail(status, message, message)
}

// NewErrorDetail は内部エラー用に、汎用メッセージと併せて
// 原因のエラーメッセージ文字列を error に載せます（スタックトレースは返しません）。
func NewErrorDetail(status int, message string, err error) Response {
	detail := message
	if err != nil {
		detail = err.Error()
	}
	return newErrorWithDetail(status, message, detail)
}

func newErrorWithDetail(status int, message, detail string) Response {
	return Response{
		Status:  status,
		Message: message,
		Data:    []any{},
		Error:   &detail,
	}
}
