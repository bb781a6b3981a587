package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// decodeJSON читает тело запроса в dst. Пустое тело допустимо, если allowEmpty.
// При ошибке ответ уже записан и возвращается false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)
	switch {
	case err == nil:
		return true
	case errors.Is(err, io.EOF) && allowEmpty:
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(w, r, http.StatusRequestEntityTooLarge, "body_too_large", "request body is too large")
		return false
	}
	respondError(w, r, http.StatusBadRequest, "invalid_json", "request body is not valid JSON: "+err.Error())
	return false
}
