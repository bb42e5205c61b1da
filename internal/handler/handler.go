// Package handler はHTTP APIのハンドラーとルーティングを提供する。
package handler

import (
	"encoding/json"
	"net/http"
	"net/mail"

	"github.com/hitoshi/tend/internal/middleware"
	"github.com/hitoshi/tend/internal/model"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// decodeBody はリクエストボディをJSONとしてデコードする。
// 失敗時は統一フォーマットの400を書き込み、falseを返す。
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("リクエストボディの解析に失敗しました"))
		return false
	}
	return true
}

// validEmail はメールアドレスの形式を検証する。
func validEmail(email string) bool {
	if email == "" {
		return false
	}
	_, err := mail.ParseAddress(email)
	return err == nil
}

// requireEmailParam はパスパラメータのメールアドレスを検証して返す。
// 不正な場合は統一フォーマットの400を書き込み、falseを返す。
func requireEmailParam(w http.ResponseWriter, email string) bool {
	if !validEmail(email) {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("メールアドレスの形式が不正です"))
		return false
	}
	return true
}
