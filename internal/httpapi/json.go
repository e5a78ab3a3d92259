package httpapi

import "net/http"

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := jsonAPI.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal: encoding response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}
