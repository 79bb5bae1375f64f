package server

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

func (l *Listener) middleware() []func(http.HandlerFunc) http.HandlerFunc {
	return []func(http.HandlerFunc) http.HandlerFunc{
		l.LoggingMiddleware,
		l.RecoverMiddleware,
		FrameSecurityMiddleware,
	}
}

func (l *Listener) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Query strings carry the code and state, so only the path is logged.
		log.Debug().
			Str("session_id", l.id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Msg("Redirect listener request")
		next(w, r)
	}
}

func FrameSecurityMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next(w, r)
	}
}

// RecoverMiddleware turns a panic in the redirect handler into a Failed
// attempt so the socket is still released and the caller still hears about it.
func (l *Listener) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				err := fmt.Errorf("[Listener] panic while handling redirect: %v", rec)
				log.Error().Str("session_id", l.id).Msg(err.Error())
				l.transition(StateFailed)
				l.finish(nil, err)
			}
		}()
		next(w, r)
	}
}
