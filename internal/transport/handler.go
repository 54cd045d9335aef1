// internal/transport/handler.go
package transport

import (
	"context"

	"go.uber.org/zap"

	"github.com/hexblade/pagepilot/api/schemas"
	"github.com/hexblade/pagepilot/internal/executor"
)

// SearchURLFunc builds a web-search URL from a query.
type SearchURLFunc func(query string) string

// Handler dispatches decoded requests onto one page-bound executor. One
// handler serves one tab; the coordinator side holds a handler per agent.
type Handler struct {
	exec      *executor.Executor
	searchURL SearchURLFunc
	logger    *zap.Logger
}

// NewHandler creates a Handler for one execution context.
func NewHandler(exec *executor.Executor, searchURL SearchURLFunc, logger *zap.Logger) *Handler {
	return &Handler{
		exec:      exec,
		searchURL: searchURL,
		logger:    logger.Named("transport"),
	}
}

// Handle performs one request. The second return is false when the request
// kind produces no response: navigation tears down the execution context
// before a reply could be delivered.
func (h *Handler) Handle(ctx context.Context, req schemas.Request) (schemas.Response, bool) {
	h.logger.Debug("Handling request.", zap.String("kind", string(req.Kind)), zap.String("id", req.ID))

	switch req.Kind {
	case schemas.MsgPing:
		return h.respond(req, schemas.Success(), nil), true

	case schemas.MsgScroll:
		amount := req.Amount
		if amount == 0 {
			amount = executor.DefaultScrollAmount
		}
		if req.Direction == "up" {
			amount = -amount
		}
		result := h.exec.Execute(ctx, schemas.Action{Kind: schemas.ActionScroll, Amount: amount})
		return h.respond(req, result, nil), true

	case schemas.MsgOpenURL:
		h.exec.Execute(ctx, schemas.Action{Kind: schemas.ActionNavigate, URL: req.URL})
		return schemas.Response{}, false

	case schemas.MsgSearchWeb:
		h.exec.Execute(ctx, schemas.Action{Kind: schemas.ActionNavigate, URL: h.searchURL(req.Query)})
		return schemas.Response{}, false

	case schemas.MsgSummary:
		result := h.exec.Execute(ctx, schemas.Action{Kind: schemas.ActionSummary})
		resp := h.respond(req, result, nil)
		if result.OK {
			resp.Text = result.Result
		}
		return resp, true

	case schemas.MsgClickLabel:
		result := h.exec.Execute(ctx, schemas.Action{Kind: schemas.ActionClick, Text: req.Label})
		return h.respond(req, result, nil), true

	case schemas.MsgClickSelector:
		result := h.exec.Execute(ctx, schemas.Action{Kind: schemas.ActionClick, Selector: req.Selector})
		return h.respond(req, result, nil), true

	case schemas.MsgFillField:
		result := h.exec.Execute(ctx, schemas.Action{
			Kind:     schemas.ActionTypeText,
			Selector: req.Selector,
			Label:    req.Label,
			Value:    req.Value,
		})
		return h.respond(req, result, nil), true

	case schemas.MsgSetDate:
		result := h.exec.Execute(ctx, schemas.Action{
			Kind:     schemas.ActionSetDate,
			Selector: req.Selector,
			Value:    req.Value,
		})
		return h.respond(req, result, nil), true

	case schemas.MsgSelectOption:
		result := h.exec.Execute(ctx, schemas.Action{
			Kind:       schemas.ActionSelectOption,
			Selector:   req.Selector,
			Label:      req.Label,
			OptionText: req.OptionText,
		})
		return h.respond(req, result, nil), true

	case schemas.MsgSubmit:
		result := h.exec.Execute(ctx, schemas.Action{Kind: schemas.ActionSubmit, Selector: req.Selector})
		return h.respond(req, result, nil), true

	case schemas.MsgAgentScan:
		insights, err := h.exec.Scan(ctx)
		if err != nil {
			return h.respond(req, schemas.Failure(err.Error()), nil), true
		}
		return h.respond(req, schemas.Success(), insights), true

	case schemas.MsgAgentExecute:
		result, insights := h.exec.ExecuteAll(ctx, req.Actions)
		return h.respond(req, result, insights), true

	default:
		// Unreachable for decoded requests; kept for requests constructed
		// in-process with a bad kind.
		return schemas.Response{ID: req.ID, OK: false, Error: "unknown message kind"}, true
	}
}

func (h *Handler) respond(req schemas.Request, result schemas.ExecResult, insights *schemas.PageInsights) schemas.Response {
	resp := schemas.Response{ID: req.ID, OK: result.OK, Insights: insights}
	if !result.OK {
		resp.Error = result.Result
	}
	return resp
}
