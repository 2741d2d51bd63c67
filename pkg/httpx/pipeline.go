package httpx

import "net/http"

// Stage is one guard in a Route. It either returns the (possibly
// rewritten) request for the next stage or an error that ends the request.
// Stages may set response headers but never write a body.
type Stage interface {
	Run(w http.ResponseWriter, r *http.Request) (*http.Request, error)
}

// StageFunc adapts a function to Stage.
type StageFunc func(w http.ResponseWriter, r *http.Request) (*http.Request, error)

func (f StageFunc) Run(w http.ResponseWriter, r *http.Request) (*http.Request, error) {
	return f(w, r)
}

// Charger is implemented by stages that must count a request even when it
// was rejected before reaching them.
type Charger interface {
	Charge(r *http.Request)
}

// Stages runs several stages as one slot, in order.
func Stages(stages ...Stage) Stage {
	return StageFunc(func(w http.ResponseWriter, r *http.Request) (*http.Request, error) {
		for _, s := range stages {
			next, err := s.Run(w, r)
			if err != nil {
				return nil, err
			}
			r = next
		}
		return r, nil
	})
}

// HandlerFunc is a route handler. A returned error is written by the
// Responder; handlers never write error bodies themselves.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Route declares the guards for one endpoint. Slots run in field order and
// nil slots are skipped.
type Route struct {
	Sanitize     Stage
	RateLimit    Stage
	Authenticate Stage
	Authorize    Stage
	Validate     Stage

	Responder *Responder
}

// Handle builds the handler. The first failing stage short-circuits: later
// stages and h never run. If the failure happened before the rate limit
// slot, that slot is still charged so rejected input costs quota.
func (rt Route) Handle(h HandlerFunc) http.Handler {
	slots := []Stage{rt.Sanitize, rt.RateLimit, rt.Authenticate, rt.Authorize, rt.Validate}
	const rateLimitSlot = 1

	resp := rt.Responder
	if resp == nil {
		resp = &Responder{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i, stage := range slots {
			if stage == nil {
				continue
			}

			next, err := stage.Run(w, r)
			if err != nil {
				if i < rateLimitSlot {
					if c, ok := rt.RateLimit.(Charger); ok {
						c.Charge(r)
					}
				}
				resp.Respond(w, r, err)
				return
			}
			r = next
		}

		if err := h(w, r); err != nil {
			resp.Respond(w, r, err)
		}
	})
}
