package middleware

import "net/http"

// allowedHeaders mirrors the header set CRM web clients send with
// scheduled-function invocations.
const allowedHeaders = "authorization, x-client-info, apikey, content-type"

// CORS adds permissive CORS headers and answers preflight requests.
// Preflight returns 200 before any authentication runs.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
