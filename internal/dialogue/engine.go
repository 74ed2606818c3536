// Package dialogue drives the per-user conversation: it classifies each
// utterance against the user's session, runs food-type lookups and renders
// replies with suggested next inputs.
package dialogue

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"

	"inspectbot/internal/config"
	"inspectbot/internal/lookup"
	"inspectbot/internal/models"
	"inspectbot/internal/ocr"
	"inspectbot/internal/validation"
)

// Lookup resolves food-type queries within a scope.
type Lookup interface {
	Find(ctx context.Context, scope lookup.Scope, query string) (*lookup.Result, error)
	Similar(ctx context.Context, scope lookup.Scope, query string) ([]string, error)
}

// ImageReader extracts a food type from an uploaded image.
type ImageReader interface {
	Remaining(ctx context.Context) int
	ExtractFoodType(ctx context.Context, imageURL string) ocr.Result
}

var _ ImageReader = (*ocr.Service)(nil)

// Options configures an Engine. Sessions and Lookup are required.
type Options struct {
	Sessions SessionStore
	Lookup   Lookup
	// Images may be nil when no extraction backend is configured.
	Images ImageReader
	Menu   config.MenuConfig
	// RecordOutcome is called once per food-type query with its outcome.
	RecordOutcome func(domain models.Domain, outcome string)
	Logger        *zap.Logger
}

// Engine answers conversational turns. It is safe for concurrent use; turns
// from the same user are serialized.
type Engine struct {
	sessions SessionStore
	lookup   Lookup
	images   ImageReader
	menu     config.MenuConfig
	record   func(models.Domain, string)
	logger   *zap.Logger
	locks    *userLocks
	intents  []intent
}

// NewEngine creates a dialogue engine.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		sessions: opts.Sessions,
		lookup:   opts.Lookup,
		images:   opts.Images,
		menu:     opts.Menu,
		record:   opts.RecordOutcome,
		logger:   opts.Logger,
		locks:    newUserLocks(),
	}
	if e.record == nil {
		e.record = func(models.Domain, string) {}
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	e.intents = e.intentTable()
	return e
}

// turn is the state one Handle call works on.
type turn struct {
	utterance string
	imageURL  string
	session   *models.Session
}

// Handle answers one turn. It never fails: store errors and panics degrade to
// an apology reply that offers a restart. A turn whose session cannot be loaded
// is not persisted.
func (e *Engine) Handle(ctx context.Context, req models.Request) (resp models.Reply) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = models.DefaultUserID
	}
	t := &turn{
		utterance: validation.NormalizeUtterance(req.Utterance),
		imageURL:  strings.TrimSpace(req.ImageURL),
	}

	unlock := e.locks.Lock(userID)
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("dialogue turn panicked",
				zap.String("user_id", userID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			resp = errorReply()
		}
	}()

	// A session that could not be read is left untouched in the store.
	sess, err := e.sessions.Load(ctx, userID)
	if err != nil {
		e.logger.Error("failed to load session", zap.String("user_id", userID), zap.Error(err))
		return errorReply()
	}
	t.session = sess

	in := e.classify(t)
	resp = in.handle(ctx, t)

	e.logger.Info("dialogue turn",
		zap.String("user_id", userID),
		zap.String("utterance", t.utterance),
		zap.Bool("image", t.imageURL != ""),
		zap.String("intent", in.name),
		zap.Int("failures", sess.ConsecutiveFailures))

	e.persist(ctx, sess)
	return resp
}

func (e *Engine) persist(ctx context.Context, sess *models.Session) {
	var err error
	if sess.IsEmpty() {
		err = e.sessions.Delete(ctx, sess.UserID)
	} else {
		err = e.sessions.Save(ctx, sess)
	}
	if err != nil {
		e.logger.Error("failed to persist session", zap.String("user_id", sess.UserID), zap.Error(err))
	}
}

// Classify returns the name of the intent an utterance would trigger for the
// given session, without side effects.
func (e *Engine) Classify(sess *models.Session, utterance, imageURL string) string {
	return e.classify(&turn{
		utterance: validation.NormalizeUtterance(utterance),
		imageURL:  strings.TrimSpace(imageURL),
		session:   sess,
	}).name
}

func (e *Engine) classify(t *turn) intent {
	for _, in := range e.intents {
		if in.match(t) {
			return in
		}
	}
	// The table ends with a catch-all, so this is unreachable.
	panic(fmt.Sprintf("no intent matched %q", t.utterance))
}

// answer runs a food-type query against the session scope and updates the
// failure counter.
func (e *Engine) answer(ctx context.Context, sess *models.Session, query string) models.Reply {
	scope := lookup.ScopeOf(sess)
	res, err := e.lookup.Find(ctx, scope, query)
	if err != nil {
		e.logger.Error("lookup failed", zap.String("query", query), zap.Error(err))
		return errorReply()
	}
	e.record(scope.Domain, res.Cardinality.String())

	switch res.Cardinality {
	case lookup.Many:
		sess.ConsecutiveFailures = 0
		return choicesReply(res)
	case lookup.One:
		sess.ConsecutiveFailures = 0
		return foundReply(scope.Function, res.Record)
	}

	sess.ConsecutiveFailures++

	similar, err := e.lookup.Similar(ctx, scope, res.Query)
	if err != nil {
		e.logger.Warn("similarity search failed", zap.String("query", query), zap.Error(err))
		similar = nil
	}

	remaining := 0
	if e.images != nil && sess.ConsecutiveFailures < documentCheckThreshold {
		remaining = e.images.Remaining(ctx)
	}
	level := escalationFor(sess.ConsecutiveFailures, remaining > 0)
	return missReply(scope, res.Query, level, remaining, similar)
}

// answerImage extracts a food type from the uploaded image and answers it as
// a query. Extraction failures leave the failure counter untouched.
func (e *Engine) answerImage(ctx context.Context, sess *models.Session, imageURL string) models.Reply {
	if e.images == nil {
		return imageFailedReply(ocr.MsgUnavailable)
	}

	res := e.images.ExtractFoodType(ctx, imageURL)
	if !res.Success {
		return imageFailedReply(res.Message)
	}
	e.record(sess.Domain, models.OutcomeOCR)

	out := e.answer(ctx, sess, res.FoodType)
	out.Text = imageReadPrefix(res.FoodType) + out.Text
	return out
}
