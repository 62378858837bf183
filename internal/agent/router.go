package agent

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/Rrens/energy-agent/internal/metrics"
	"github.com/Rrens/energy-agent/internal/scope"
	"github.com/Rrens/energy-agent/internal/trace"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const approvalConfirmation = "Expanded data access approved. Queries in this session are no longer limited to the linked collection."

var errRequestTimeout = errors.New("request timed out")

// Query is one routed chat turn
type Query struct {
	Message           string
	UserID            string
	AgentType         domain.AgentType
	FoundationModelID string
	// Session is the stored session, nil for stateless calls
	Session *domain.ChatSession
	// CollectionContext applies only when Session is nil
	CollectionContext *domain.CollectionContext
	// History holds prior turns, oldest first, excluding Message
	History  []domain.Message
	Recorder *trace.Recorder
}

func (q Query) sessionID() string {
	if q.Session != nil {
		return q.Session.ID
	}
	return ""
}

func (q Query) collection() *domain.CollectionContext {
	if q.Session != nil {
		return q.Session.CollectionContext
	}
	return q.CollectionContext
}

// Router resolves the agent for a query, applies the scope guard and
// dispatches to the matching handler
type Router struct {
	handlers     Handlers
	guard        *scope.Guard
	sessions     domain.SessionRepository
	keywords     *KeywordClassifier
	classifier   *LLMClassifier
	defaultAgent domain.AgentType
	logger       zerolog.Logger
	now          func() time.Time
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithLLMClassifier enables the model fallback for inconclusive keyword scores
func WithLLMClassifier(c *LLMClassifier) RouterOption {
	return func(r *Router) {
		r.classifier = c
	}
}

// WithDefaultAgent sets the agent used when classification is inconclusive
func WithDefaultAgent(agent domain.AgentType) RouterOption {
	return func(r *Router) {
		if agent != "" && agent != domain.AgentAuto {
			r.defaultAgent = agent
		}
	}
}

// WithRouterLogger sets the router logger
func WithRouterLogger(logger zerolog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithRouterClock overrides time.Now for access log entries
func WithRouterClock(now func() time.Time) RouterOption {
	return func(r *Router) {
		r.now = now
	}
}

// NewRouter creates a router. sessions may be nil when approvals need not be persisted.
func NewRouter(handlers Handlers, guard *scope.Guard, sessions domain.SessionRepository, opts ...RouterOption) *Router {
	r := &Router{
		handlers:     handlers,
		guard:        guard,
		sessions:     sessions,
		keywords:     NewKeywordClassifier(),
		defaultAgent: domain.AgentPetrophysics,
		logger:       log.Logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RouteQuery answers one chat turn. It never fails: every error is returned
// as a response with Success false.
func (r *Router) RouteQuery(ctx context.Context, q Query) (resp *domain.AgentResponse) {
	start := time.Now()
	rec := q.Recorder
	if rec == nil {
		rec = trace.NewRecorder(trace.WithLogger(r.logger))
	}
	logger := r.logger.With().Str("session_id", q.sessionID()).Str("user_id", q.UserID).Logger()

	var agent domain.AgentType
	defer func() {
		if p := recover(); p != nil {
			logger.Error().Interface("panic", p).Bytes("stack", debug.Stack()).Msg("Router panic")
			resp = domain.FailureResponse(fmt.Sprint(p))
		}
		resp = ensureSerializable(logger, normalize(resp, agent, rec.ThoughtSteps()))

		outcome := "success"
		switch {
		case !resp.Success:
			outcome = "failure"
		case len(resp.Artifacts) == 1 && resp.Artifacts[0].ContentType() == domain.ContentTypeDataAccessApproval:
			outcome = "approval_required"
		}
		label := resp.AgentUsed
		if label == "" {
			label = "none"
		}
		metrics.RoutedQueries.WithLabelValues(label, outcome).Inc()
		metrics.RouteDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}()

	if replay, ok := pendingApproval(q); ok {
		return r.handleApproval(ctx, q, replay, rec, logger, &agent)
	}

	if r.guard != nil {
		if check := r.guard.Check(q.Message, q.collection()); check.RequiresApproval {
			step := rec.Add(trace.TypeValidation, "Checking data access scope", "Comparing referenced items with the linked collection", nil, nil)
			rec.Complete(step.ID, &trace.Update{Summary: trace.String(check.Message)})
			metrics.ScopeGuardFlags.Inc()
			logger.Info().Strs("out_of_scope", check.OutOfScopeItems).Msg("Query requires expanded access approval")
			return approvalRequest(q, check)
		}
	}

	agent = r.selectAgent(ctx, q, q.Message, rec, logger)
	return r.dispatch(ctx, agent, q, q.Message, rec, logger)
}

// selectAgent honors an explicit agent and otherwise classifies the message
func (r *Router) selectAgent(ctx context.Context, q Query, message string, rec *trace.Recorder, logger zerolog.Logger) domain.AgentType {
	step := rec.Add(trace.TypeIntentDetection, "Detecting intent", "Selecting the agent for the query", nil, nil)

	c := r.classify(ctx, q, message, logger)

	rec.Complete(step.ID, &trace.Update{
		Summary: trace.String(fmt.Sprintf("Routing to %s agent (%s)", c.Agent, c.Method)),
		Context: &trace.Context{AnalysisType: string(c.Agent), Method: c.Method},
		Details: c,
	})
	logger.Debug().Str("agent", string(c.Agent)).Str("method", c.Method).Msg("Agent selected")
	return c.Agent
}

func (r *Router) classify(ctx context.Context, q Query, message string, logger zerolog.Logger) Classification {
	if q.AgentType != "" && q.AgentType != domain.AgentAuto {
		return Classification{Agent: q.AgentType, Method: MethodExplicit}
	}
	if c, ok := r.keywords.Classify(message); ok {
		return c
	}
	if r.classifier != nil {
		c, err := r.classifier.Classify(ctx, q.FoundationModelID, message, q.History)
		if err == nil {
			return c
		}
		logger.Warn().Err(err).Msg("LLM classifier unavailable, using default agent")
	}
	return Classification{Agent: r.defaultAgent, Method: MethodDefault}
}

// handlerFor maps every agent in the closed set onto its handler
func (r *Router) handlerFor(agent domain.AgentType) (Handler, error) {
	var h Handler
	switch agent {
	case domain.AgentPetrophysics:
		h = r.handlers.Petrophysics
	case domain.AgentMaintenance:
		h = r.handlers.Maintenance
	case domain.AgentRenewable:
		h = r.handlers.Renewable
	case domain.AgentEDIcraft:
		h = r.handlers.EDIcraft
	case domain.AgentAuto:
		return nil, errors.New("agent must be resolved before dispatch")
	default:
		return nil, fmt.Errorf("unknown agent type: %s", agent)
	}
	if h == nil {
		return nil, fmt.Errorf("%s agent is not available", agent)
	}
	return h, nil
}

func (r *Router) dispatch(ctx context.Context, agent domain.AgentType, q Query, message string, rec *trace.Recorder, logger zerolog.Logger) *domain.AgentResponse {
	h, err := r.handlerFor(agent)
	if err != nil {
		logger.Error().Err(err).Msg("No handler for agent")
		return domain.FailureResponse(err.Error())
	}

	step := rec.Add(trace.TypeExecution, fmt.Sprintf("Running %s agent", agent), "Handing the query to the specialist", nil, nil)
	res, err := invokeWithContext(ctx, h, Request{
		Message:    message,
		History:    q.History,
		SessionID:  q.sessionID(),
		UserID:     q.UserID,
		Collection: q.collection(),
		Recorder:   rec,
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			err = errRequestTimeout
		}
		rec.Fail(step.ID, err, nil)
		logger.Warn().Err(ctxErr).Str("agent", string(agent)).Msg("Agent handler did not finish in time")
		return domain.FailureResponse(err.Error())
	}
	if err != nil {
		rec.Fail(step.ID, err, nil)
		logger.Error().Err(err).Str("agent", string(agent)).Msg("Agent handler failed")
		return domain.FailureResponse(err.Error())
	}
	if res == nil {
		err = errors.New("agent returned no result")
		rec.Fail(step.ID, err, nil)
		return domain.FailureResponse(err.Error())
	}
	rec.Complete(step.ID, &trace.Update{RecordCount: intPtr(len(res.Artifacts))})

	return &domain.AgentResponse{
		Success:           res.Success,
		Message:           res.Message,
		Artifacts:         res.Artifacts,
		SourceAttribution: res.SourceAttribution,
	}
}

// invokeWithContext runs the handler and stops waiting once ctx is done. A
// handler that ignores ctx keeps running until it returns; its result is discarded.
func invokeWithContext(ctx context.Context, h Handler, req Request) (*Result, error) {
	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := invoke(ctx, h, req)
		done <- outcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		return o.res, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// invoke converts handler panics into errors
func invoke(ctx context.Context, h Handler, req Request) (res *Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Bytes("stack", debug.Stack()).Msg("Agent handler panic")
			res = nil
			if e, ok := p.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("%v", p)
		}
	}()
	return h.Handle(ctx, req)
}

func approvalRequest(q Query, check scope.Result) *domain.AgentResponse {
	artifact := domain.Artifact{
		domain.ArtifactTypeKey: domain.ContentTypeDataAccessApproval,
		"requiresApproval":     true,
		"outOfScopeItems":      check.OutOfScopeItems,
		"message":              check.Message,
		"originalQuery":        q.Message,
	}
	if cc := q.collection(); cc != nil {
		artifact["collectionId"] = cc.CollectionID
		artifact["collectionName"] = cc.Name
	}
	return &domain.AgentResponse{
		Success:   true,
		Message:   check.Message,
		Artifacts: []domain.Artifact{artifact},
	}
}

// handleApproval records the approval, unlocks the session and replays the
// query that was held back
func (r *Router) handleApproval(ctx context.Context, q Query, replay string, rec *trace.Recorder, logger zerolog.Logger, agent *domain.AgentType) *domain.AgentResponse {
	step := rec.Add(trace.TypeValidation, "Recording access approval", "Expanding data access for this session", nil, nil)

	if q.Session != nil && r.sessions != nil {
		if _, err := r.recordApproval(ctx, q.Session.ID, q.UserID); err != nil {
			rec.Fail(step.ID, err, nil)
			logger.Error().Err(err).Msg("Failed to record access approval")
			if errors.Is(err, domain.ErrForbidden) {
				return domain.FailureResponse(domain.ErrForbidden.Error())
			}
			return domain.FailureResponse("failed to record access approval")
		}
		// The stored session no longer carries a collection context
		unlocked := *q.Session
		unlocked.CollectionContext = nil
		q.Session = &unlocked
	}
	q.CollectionContext = nil
	metrics.AccessApprovals.Inc()
	rec.Complete(step.ID, nil)

	if replay == "" {
		return &domain.AgentResponse{Success: true, Message: approvalConfirmation}
	}

	logger.Info().Msg("Replaying query after access approval")
	*agent = r.selectAgent(ctx, q, replay, rec, logger)
	return r.dispatch(ctx, *agent, q, replay, rec, logger)
}

// recordApproval appends the approval entry and clears the cached collection
// context with a version-checked write, retrying once on conflict
func (r *Router) recordApproval(ctx context.Context, sessionID, userID string) (*domain.ChatSession, error) {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var session *domain.ChatSession
		session, err = r.sessions.Get(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
		if !session.IsOwnedBy(userID) {
			return nil, domain.ErrForbidden
		}

		collectionID := ""
		if session.CollectionContext != nil {
			collectionID = session.CollectionContext.CollectionID
		} else if session.LinkedCollectionID != nil {
			collectionID = *session.LinkedCollectionID
		}

		now := r.now().UTC()
		session.DataAccessLog = append(session.DataAccessLog, domain.DataAccessLogEntry{
			Timestamp:    now,
			Action:       domain.AccessActionExpandedApproved,
			CollectionID: collectionID,
			UserID:       userID,
			Message:      "User approved access to data outside the linked collection",
		})
		session.CollectionContext = nil
		session.UpdatedAt = now

		err = r.sessions.Update(ctx, session)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("failed to update session: %w", err)
		}
	}
	return nil, err
}

// pendingApproval reports whether q approves a query the guard held back on the
// previous turn, and returns that query. An approval phrase is only an approval
// while a collection context is in force and the last assistant turn asked for one.
func pendingApproval(q Query) (string, bool) {
	if !scope.IsApproval(q.Message) || q.collection() == nil {
		return "", false
	}
	for i := len(q.History) - 1; i >= 0; i-- {
		m := q.History[i]
		if m.Role != domain.RoleAssistant {
			continue
		}
		request, ok := approvalArtifact(m.Artifacts)
		if !ok {
			return "", false
		}
		if original, ok := request["originalQuery"].(string); ok && original != "" {
			return original, true
		}
		return lastPendingQuery(q.History[:i]), true
	}
	return "", false
}

func approvalArtifact(artifacts []domain.Artifact) (domain.Artifact, bool) {
	for _, a := range artifacts {
		if a.ContentType() == domain.ContentTypeDataAccessApproval {
			return a, true
		}
	}
	return nil, false
}

// lastPendingQuery finds the most recent user message that is not itself an approval
func lastPendingQuery(history []domain.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		if m.Role != domain.RoleUser || scope.IsApproval(m.Content) {
			continue
		}
		return m.Content
	}
	return ""
}

func intPtr(v int) *int { return &v }
