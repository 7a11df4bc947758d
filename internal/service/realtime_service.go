package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/prompt-arena/internal/dto"
	"github.com/noah-isme/prompt-arena/internal/middleware"
	"github.com/noah-isme/prompt-arena/internal/models"
	"github.com/noah-isme/prompt-arena/internal/observability"
	"github.com/noah-isme/prompt-arena/internal/repository"
	"github.com/noah-isme/prompt-arena/pkg/ai"
)

const (
	realtimeSendBufferSize = 32
	realtimePingInterval   = 30 * time.Second
	realtimeSchemaURL      = "arena://realtime/frame.json"
)

const realtimeFrameSchema = `{
	"type": "object",
	"required": ["event", "data"],
	"properties": {
		"event": {"type": "string", "minLength": 1},
		"data": {
			"type": "object",
			"properties": {
				"user": {"type": "string"},
				"prompt": {"type": "string"},
				"system_output": {"type": "string"},
				"reference_translation": {"type": "string"},
				"source_text": {"type": "string"},
				"system_prompt": {"type": "string"}
			}
		}
	}
}`

// ErrUnsupportedEvent is returned for inbound frames other than submit_prompt.
var ErrUnsupportedEvent = errors.New("unsupported realtime event")

// RealtimeConn is the subset of a websocket connection the hub needs.
type RealtimeConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// RealtimeConnectionOptions carries metadata captured during the HTTP upgrade.
type RealtimeConnectionOptions struct {
	CorrelationID string
	RemoteAddr    string
	Context       context.Context
}

// RealtimeOptions configures the realtime service.
type RealtimeOptions struct {
	Redis   *redis.Client
	NATS    *nats.Conn
	Channel string
}

// RealtimeService runs the live leaderboard: it accepts submissions over
// websocket connections and pushes the full ranking to every client.
type RealtimeService interface {
	ServeConnection(conn RealtimeConn, opts RealtimeConnectionOptions)
	// Submit scores event and broadcasts the new ranking.
	Submit(ctx context.Context, event dto.SubmitPromptEvent) ([]dto.RealtimeEntry, error)
	Snapshot(ctx context.Context) ([]dto.RealtimeEntry, error)
	ConnectedClients() int
	// Start subscribes to cross-node replication when configured.
	Start(ctx context.Context) error
}

type realtimeService struct {
	pipeline     SubmissionService
	store        repository.SubmissionRepository
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	schema       *jsonschema.Schema
	sanitizer    *bluemonday.Policy
	logger       zerolog.Logger
	tracer       trace.Tracer
	hub          *realtimeHub
	nodeID       string
}

// realtimeHub tracks connected clients. Its lock also serialises
// append, ranking and broadcast so every client sees the same order of states.
type realtimeHub struct {
	mu      sync.Mutex
	clients map[*realtimeClient]struct{}
	log     zerolog.Logger
}

type realtimeClient struct {
	conn    RealtimeConn
	send    chan []byte
	options RealtimeConnectionOptions
	service *realtimeService
	closed  chan struct{}
	once    sync.Once
}

type replicationEvent struct {
	Source     string            `json:"source"`
	Submission models.Submission `json:"submission"`
	SentAt     time.Time         `json:"sent_at"`
}

// NewRealtimeService creates the realtime hub. store is the collection the
// hub ranks and broadcasts; pipeline provides validation and scoring.
func NewRealtimeService(pipeline SubmissionService, store repository.SubmissionRepository, opts RealtimeOptions, logger zerolog.Logger) (RealtimeService, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(realtimeSchemaURL, strings.NewReader(realtimeFrameSchema)); err != nil {
		return nil, fmt.Errorf("load realtime frame schema: %w", err)
	}
	schema, err := compiler.Compile(realtimeSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile realtime frame schema: %w", err)
	}

	redisChannel := ""
	natsSubject := ""
	if opts.Channel != "" {
		redisChannel = opts.Channel + ":leaderboard"
		natsSubject = strings.ReplaceAll(opts.Channel, ":", ".") + ".leaderboard"
	}

	return &realtimeService{
		pipeline:     pipeline,
		store:        store,
		redis:        opts.Redis,
		redisChannel: redisChannel,
		nats:         opts.NATS,
		natsSubject:  natsSubject,
		schema:       schema,
		sanitizer:    bluemonday.StrictPolicy(),
		logger:       logger.With().Str("component", "realtime_service").Logger(),
		tracer:       otel.Tracer("github.com/noah-isme/prompt-arena/internal/service/realtime"),
		hub: &realtimeHub{
			clients: make(map[*realtimeClient]struct{}),
			log:     logger.With().Str("component", "realtime_hub").Logger(),
		},
		nodeID: uuid.NewString(),
	}, nil
}

func (s *realtimeService) Start(ctx context.Context) error {
	if s.redis != nil && s.redisChannel != "" {
		pubsub := s.redis.Subscribe(ctx, s.redisChannel)
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			return fmt.Errorf("subscribe to redis channel %s: %w", s.redisChannel, err)
		}
		go s.consumeRedis(ctx, pubsub)
	}

	if s.nats != nil && s.natsSubject != "" {
		sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
			s.handleReplication("nats", msg.Data)
		})
		if err != nil {
			return fmt.Errorf("subscribe to nats subject %s: %w", s.natsSubject, err)
		}
		go func() {
			<-ctx.Done()
			if err := sub.Drain(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to drain realtime nats subscription")
			}
		}()
	}

	return nil
}

func (s *realtimeService) ServeConnection(conn RealtimeConn, opts RealtimeConnectionOptions) {
	if opts.Context == nil {
		opts.Context = context.Background()
	}

	client := &realtimeClient{
		conn:    conn,
		send:    make(chan []byte, realtimeSendBufferSize),
		options: opts,
		service: s,
		closed:  make(chan struct{}),
	}

	s.hub.register(client)
	observability.RealtimeConnections().Inc()

	go client.writer()
	client.reader()
}

func (s *realtimeService) ConnectedClients() int {
	return s.hub.size()
}

func (s *realtimeService) Snapshot(ctx context.Context) ([]dto.RealtimeEntry, error) {
	submissions, err := s.store.TopByScore(ctx, 0)
	if err != nil {
		return nil, err
	}
	return dto.NewRealtimeEntries(submissions), nil
}

func (s *realtimeService) Submit(ctx context.Context, event dto.SubmitPromptEvent) ([]dto.RealtimeEntry, error) {
	event.User = s.sanitizeName(event.User)

	submission, err := s.pipeline.Prepare(ctx, event.ScoringInput())
	if err != nil {
		return nil, err
	}

	spanCtx, span := s.tracer.Start(ctx, "realtime.broadcast", trace.WithAttributes(
		attribute.String("realtime.user", submission.Name),
		attribute.Float64("realtime.score", submission.Score),
	))
	defer span.End()

	entries, err := s.commit(spanCtx, &submission, "local")
	if err != nil {
		span.RecordError(err)
		observability.Submissions().WithLabelValues(submission.Mode, "store").Inc()
		return nil, err
	}
	observability.Submissions().WithLabelValues(submission.Mode, "ok").Inc()

	if err := s.publish(spanCtx, submission); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish realtime submission")
	}

	return entries, nil
}

// sanitizeName strips markup from a display name. bluemonday escapes the text
// it keeps, so the result is unescaped back to the plain label.
func (s *realtimeService) sanitizeName(name string) string {
	return html.UnescapeString(s.sanitizer.Sanitize(name))
}

// commit appends the submission and broadcasts the resulting ranking while
// holding the hub lock.
func (s *realtimeService) commit(ctx context.Context, submission *models.Submission, origin string) ([]dto.RealtimeEntry, error) {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()

	if err := s.store.Append(ctx, submission); err != nil {
		return nil, err
	}

	ranked, err := s.store.TopByScore(ctx, 0)
	if err != nil {
		return nil, err
	}
	entries := dto.NewRealtimeEntries(ranked)

	frame, err := json.Marshal(dto.RealtimeOutbound{Event: dto.EventUpdateLeaderboard, Data: entries})
	if err != nil {
		return nil, err
	}

	s.hub.broadcastLocked(frame)
	observability.RealtimeBroadcasts().WithLabelValues(origin).Inc()

	return entries, nil
}

func (s *realtimeService) publish(ctx context.Context, submission models.Submission) error {
	if (s.redis == nil || s.redisChannel == "") && (s.nats == nil || s.natsSubject == "") {
		return nil
	}

	payload, err := json.Marshal(replicationEvent{
		Source:     s.nodeID,
		Submission: submission,
		SentAt:     time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *realtimeService) consumeRedis(ctx context.Context, pubsub *redis.PubSub) {
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) {
				return
			}
			s.logger.Error().Err(err).Msg("realtime redis subscription closed")
			return
		}
		s.handleReplication("redis", []byte(msg.Payload))
	}
}

func (s *realtimeService) handleReplication(transport string, data []byte) {
	var event replicationEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn().Err(err).Str("transport", transport).Msg("invalid realtime replication event")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	observability.RealtimeReplicatedEvents().WithLabelValues(transport).Inc()

	submission := event.Submission
	submission.ID = 0
	if _, err := s.commit(context.Background(), &submission, transport); err != nil {
		s.logger.Warn().Err(err).Str("transport", transport).Msg("failed to apply replicated submission")
	}
}

// decodeFrame validates an inbound frame against the frame schema.
func (s *realtimeService) decodeFrame(data []byte) (dto.SubmitPromptEvent, error) {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return dto.SubmitPromptEvent{}, ai.ValidationError("malformed frame: expected JSON")
	}
	if err := s.schema.Validate(doc); err != nil {
		return dto.SubmitPromptEvent{}, ai.ValidationError("malformed frame: " + firstSchemaError(err))
	}

	var frame dto.RealtimeFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return dto.SubmitPromptEvent{}, ai.ValidationError("malformed frame")
	}
	if frame.Event != dto.EventSubmitPrompt {
		return dto.SubmitPromptEvent{}, fmt.Errorf("%w: %s", ErrUnsupportedEvent, frame.Event)
	}

	var event dto.SubmitPromptEvent
	if err := json.Unmarshal(frame.Data, &event); err != nil {
		return dto.SubmitPromptEvent{}, ai.ValidationError("malformed submit_prompt payload")
	}
	return event, nil
}

func firstSchemaError(err error) string {
	var validationErr *jsonschema.ValidationError
	if errors.As(err, &validationErr) {
		leaf := validationErr
		for len(leaf.Causes) > 0 {
			leaf = leaf.Causes[0]
		}
		location := leaf.InstanceLocation
		if location == "" {
			location = "/"
		}
		return location + ": " + leaf.Message
	}
	return err.Error()
}

func realtimeErrorFrame(err error) []byte {
	status := StatusForError(err)
	message := PublicMessage(err)
	if errors.Is(err, ErrUnsupportedEvent) {
		status = http.StatusBadRequest
		message = err.Error()
	}

	frame, marshalErr := json.Marshal(dto.RealtimeOutbound{
		Event: dto.EventError,
		Data:  dto.RealtimeError{Message: message, Status: status},
	})
	if marshalErr != nil {
		return []byte(`{"event":"error","data":{"message":"internal server error","status":500}}`)
	}
	return frame
}

func (h *realtimeHub) register(client *realtimeClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = struct{}{}
	h.log.Debug().Str("remote_addr", client.options.RemoteAddr).Int("clients", len(h.clients)).Msg("realtime client connected")
}

func (h *realtimeHub) unregister(client *realtimeClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	observability.RealtimeConnections().Dec()
	h.log.Debug().Str("remote_addr", client.options.RemoteAddr).Int("clients", len(h.clients)).Msg("realtime client disconnected")
}

func (h *realtimeHub) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcastLocked queues frame for every client. The caller holds h.mu.
func (h *realtimeHub) broadcastLocked(frame []byte) {
	for client := range h.clients {
		client.enqueue(frame)
	}
}

func (c *realtimeClient) enqueue(frame []byte) {
	select {
	case c.send <- frame:
	default:
		observability.RealtimeDroppedFrames().Inc()
		c.service.hub.log.Warn().Str("remote_addr", c.options.RemoteAddr).Msg("dropping realtime frame for slow client")
	}
}

func (c *realtimeClient) reader() {
	defer c.close()

	ctx := middleware.ContextWithCorrelation(c.options.Context, c.options.CorrelationID)

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			c.service.logger.Debug().Err(err).Msg("realtime read loop ended")
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		event, err := c.service.decodeFrame(data)
		if err == nil {
			_, err = c.service.Submit(ctx, event)
		}
		if err != nil {
			c.service.logger.Warn().Err(err).Str("correlation_id", c.options.CorrelationID).Msg("failed to process realtime submission")
			select {
			case <-c.closed:
				return
			default:
			}
			c.enqueue(realtimeErrorFrame(err))
		}
	}
}

func (c *realtimeClient) writer() {
	defer c.close()

	ticker := time.NewTicker(realtimePingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.service.logger.Debug().Err(err).Msg("realtime write loop terminated")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("realtime ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *realtimeClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.service.hub.unregister(c)
		_ = c.conn.Close()
	})
}
