package fulfillment

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
	dialogflow "google.golang.org/api/dialogflow/v2"

	"github.com/initify/solarhook/internal/webhook"
)

// DefaultSession is used when a request carries no session name.
const DefaultSession = "default"

// DefaultFallbackText answers intents that have no registered action.
const DefaultFallbackText = "I can help with system size, cost, installers, net metering, and FAQs."

const unauthorizedText = "Unauthorized."

// A Query is the part of a webhook request an action works with.
type Query struct {
	Session string
	Intent  string
	Params  Params
	Request *dialogflow.GoogleCloudDialogflowV2WebhookRequest
}

// An ActionFunc answers a single intent.
type ActionFunc func(ctx context.Context, q *Query) (*dialogflow.GoogleCloudDialogflowV2WebhookResponse, error)

// Actions maps intent display names to their ActionFunc.
type Actions map[string]ActionFunc

// NewActions returns a new, empty Actions map.
func NewActions() Actions {
	return make(Actions)
}

// Set sets the ActionFunc for intent, replacing any existing entry.
func (a Actions) Set(intent string, fn ActionFunc) {
	a[intent] = fn
}

// Text returns a response carrying only fulfillment text.
func Text(s string) *dialogflow.GoogleCloudDialogflowV2WebhookResponse {
	return &dialogflow.GoogleCloudDialogflowV2WebhookResponse{FulfillmentText: s}
}

// Handler dispatches fulfillment requests to Actions.
type Handler struct {
	actions  Actions
	auth     *Authorizer
	fallback string
}

type Option func(*Handler)

// WithToken requires callers to present token as a bearer credential.
// An empty token leaves the handler open.
func WithToken(token string) Option {
	return func(h *Handler) { h.auth = NewAuthorizer(token) }
}

// WithFallbackText overrides DefaultFallbackText.
func WithFallbackText(s string) Option {
	return func(h *Handler) { h.fallback = s }
}

func NewHandler(actions Actions, opts ...Option) *Handler {
	h := &Handler{
		actions:  actions,
		auth:     NewAuthorizer(""),
		fallback: DefaultFallbackText,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeWebhook(w http.ResponseWriter, r *webhook.Request) {
	if !h.auth.Allow(r.Header.Get("Authorization")) {
		writeJSON(w, http.StatusUnauthorized, Text(unauthorizedText))
		return
	}

	var req dialogflow.GoogleCloudDialogflowV2WebhookRequest
	if err := r.Decode(&req); err != nil {
		logrus.WithError(err).Warn("invalid fulfillment request")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	q, err := newQuery(&req)
	if err != nil {
		logrus.WithError(err).Warn("invalid fulfillment parameters")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	fn, ok := h.actions[q.Intent]
	if !ok {
		logrus.WithField("intent", q.Intent).Debug("no action for intent")
		writeJSON(w, http.StatusOK, Text(h.fallback))
		return
	}

	logrus.WithFields(logrus.Fields{
		"intent":  q.Intent,
		"session": q.Session,
	}).Info("invoking action")

	ctx := context.Background()
	if r.HTTP != nil {
		ctx = r.HTTP.Context()
	}
	resp, err := fn(ctx, q)
	if err != nil {
		logrus.WithError(err).WithField("intent", q.Intent).Error("action failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func newQuery(req *dialogflow.GoogleCloudDialogflowV2WebhookRequest) (*Query, error) {
	q := &Query{
		Session: req.Session,
		Params:  Params{},
		Request: req,
	}
	if q.Session == "" {
		q.Session = DefaultSession
	}

	if qr := req.QueryResult; qr != nil {
		if qr.Intent != nil {
			q.Intent = qr.Intent.DisplayName
		}
		if len(qr.Parameters) > 0 {
			if err := json.Unmarshal(qr.Parameters, &q.Params); err != nil {
				return nil, err
			}
			if q.Params == nil {
				q.Params = Params{}
			}
		}
	}
	return q, nil
}

func writeJSON(w http.ResponseWriter, code int, resp *dialogflow.GoogleCloudDialogflowV2WebhookResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		logrus.WithError(err).Error("encode fulfillment response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		logrus.WithError(err).Debug("write fulfillment response")
	}
}
