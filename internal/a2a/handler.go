package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/BerylCAtieno/umaja/internal/content"
	"github.com/BerylCAtieno/umaja/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodySize = 1 << 20

// Renderer renders a smile, falling back to the default language.
type Renderer interface {
	RenderWithFallback(req models.RenderRequest) (*models.Rendered, error)
}

// Polisher optionally rewrites rendered text.
type Polisher interface {
	Polish(ctx context.Context, r *models.Rendered) *models.Rendered
}

// Recorder receives analytics events for completed tasks.
type Recorder interface {
	TrackQuietly(ctx context.Context, ev models.AnalyticsEvent)
}

// SmileRequest is what an agent message asks for.
type SmileRequest struct {
	Archetype models.Archetype
	Language  string
	Topic     string
}

type A2AHandler struct {
	renderer Renderer
	polisher Polisher
	recorder Recorder
	logger   *zap.Logger
	version  string
}

func NewA2AHandler(renderer Renderer, polisher Polisher, recorder Recorder, logger *zap.Logger) *A2AHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &A2AHandler{
		renderer: renderer,
		polisher: polisher,
		recorder: recorder,
		logger:   logger.Named("a2a"),
		version:  "1.0.0",
	}
}

// HandleSmile processes A2A JSON-RPC messages. A bare MessageParams body
// without the JSON-RPC envelope is accepted too.
func (h *A2AHandler) HandleSmile(c *gin.Context) {
	bodyBytes, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodySize))
	if err != nil {
		h.sendErrorResponse(c, nil, "Failed to read request body", CodeParseError)
		return
	}

	var rpcReq JSONRPCRequest
	if err := json.Unmarshal(bodyBytes, &rpcReq); err != nil || rpcReq.Method == "" {
		h.logger.Debug("not a JSON-RPC request, trying direct message", zap.Error(err))
		h.handleDirectMessage(c, bodyBytes)
		return
	}

	h.logger.Debug("rpc request", zap.String("method", rpcReq.Method), zap.Any("id", rpcReq.ID))

	if rpcReq.JSONRPC != "2.0" {
		h.sendErrorResponse(c, rpcReq.ID, "Invalid JSON-RPC version", CodeInvalidRequest)
		return
	}

	switch rpcReq.Method {
	case "message/send", "agent/task":
		h.handleTask(c, rpcReq)
	default:
		h.sendErrorResponse(c, rpcReq.ID, fmt.Sprintf("Method not found: %s", rpcReq.Method), CodeMethodNotFound)
	}
}

func (h *A2AHandler) handleDirectMessage(c *gin.Context, bodyBytes []byte) {
	var msgParams MessageParams
	if err := json.Unmarshal(bodyBytes, &msgParams); err != nil {
		h.sendErrorResponse(c, nil, "Invalid request format", CodeParseError)
		return
	}

	taskID := uuid.New().String()
	h.sendSuccessResponse(c, taskID, h.runTask(c.Request.Context(), taskID, msgParams.Message))
}

func (h *A2AHandler) handleTask(c *gin.Context, rpcReq JSONRPCRequest) {
	paramsJSON, err := json.Marshal(rpcReq.Params)
	if err != nil {
		h.sendErrorResponse(c, rpcReq.ID, "Failed to parse parameters", CodeInvalidParams)
		return
	}

	var msgParams MessageParams
	if err := json.Unmarshal(paramsJSON, &msgParams); err != nil {
		h.sendErrorResponse(c, rpcReq.ID, "Invalid parameters", CodeInvalidParams)
		return
	}

	taskID := msgParams.Message.TaskID
	if taskID == "" {
		taskID = uuid.New().String()
	}
	h.sendSuccessResponse(c, rpcReq.ID, h.runTask(c.Request.Context(), taskID, msgParams.Message))
}

func (h *A2AHandler) runTask(ctx context.Context, taskID string, msg A2AMessage) TaskResult {
	text := extractText(msg)
	if text == "" {
		return createErrorTaskResult(taskID, StateInputRequired,
			"Tell me what to smile about, e.g. \"archetype: worrier, language: en, topic: coffee\".")
	}

	req, err := ParseSmileRequest(text)
	if err != nil {
		return createErrorTaskResult(taskID, StateInputRequired, err.Error())
	}

	rendered, err := h.renderer.RenderWithFallback(models.RenderRequest{
		Archetype: req.Archetype,
		Language:  req.Language,
		Subject:   req.Topic,
		Mode:      models.ModeTopic,
	})
	if errors.Is(err, content.ErrNotFound) {
		return createErrorTaskResult(taskID, StateInputRequired,
			fmt.Sprintf("I don't know the topic %q yet. Try one of the topics listed at /api/topics.", req.Topic))
	}
	if err != nil {
		h.logger.Error("failed to render smile", zap.String("task_id", taskID), zap.Error(err))
		return createErrorTaskResult(taskID, StateFailed, "Failed to generate a smile")
	}

	if h.polisher != nil {
		rendered = h.polisher.Polish(ctx, rendered)
	}

	if h.recorder != nil {
		h.recorder.TrackQuietly(ctx, models.AnalyticsEvent{
			EventType: models.EventContentGenerated,
			Payload: map[string]interface{}{
				"archetype": rendered.Archetype.String(),
				"language":  rendered.Language,
				"topic":     rendered.Subject,
				"source":    "a2a",
			},
		})
	}

	h.logger.Info("smile generated",
		zap.String("task_id", taskID),
		zap.String("archetype", rendered.Archetype.String()),
		zap.String("topic", rendered.Subject),
	)
	return createSuccessTaskResult(taskID, rendered)
}

// ParseSmileRequest reads "key: value, key: value" text. Recognized keys are
// archetype, language and topic; text without any key is taken as the topic.
// Missing values default to the professor in English.
func ParseSmileRequest(text string) (*SmileRequest, error) {
	text = strings.TrimSpace(text)

	data := make(map[string]string)
	for _, pair := range strings.Split(text, ",") {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) == 2 {
			key := strings.ToLower(strings.TrimSpace(parts[0]))
			data[key] = strings.TrimSpace(parts[1])
		}
	}

	req := &SmileRequest{
		Archetype: models.Professor,
		Language:  "en",
		Topic:     data["topic"],
	}
	if len(data) == 0 {
		req.Topic = text
	}
	if v := data["archetype"]; v != "" {
		a, err := models.ParseArchetype(v)
		if err != nil {
			return nil, fmt.Errorf("I only know the archetypes professor, worrier and enthusiast, not %q", v)
		}
		req.Archetype = a
	}
	if v := data["language"]; v != "" {
		req.Language = strings.ToLower(v)
	}
	if req.Topic == "" {
		return nil, errors.New("Please include a topic, e.g. \"topic: coffee\"")
	}
	return req, nil
}

// extractText joins the text parts of a message. Data parts carrying
// conversation history contribute their most recent non-empty text.
func extractText(msg A2AMessage) string {
	var texts []string

	for _, part := range msg.Parts {
		switch part.Kind {
		case "text":
			if t := strings.TrimSpace(part.Text); t != "" {
				texts = append(texts, t)
			}

		case "data":
			if t := lastHistoryText(part.Data); t != "" {
				texts = append(texts, t)
			}
		}
	}

	return strings.TrimSpace(strings.Join(texts, " "))
}

func lastHistoryText(data interface{}) string {
	if data == nil {
		return ""
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	var history []MessagePart
	if err := json.Unmarshal(raw, &history); err != nil {
		return ""
	}

	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Kind != "text" {
			continue
		}
		t := strings.TrimSpace(history[i].Text)
		t = strings.TrimSpace(strings.NewReplacer("<p>", "", "</p>", "").Replace(t))
		if t != "" {
			return t
		}
	}
	return ""
}

func createSuccessTaskResult(taskID string, rendered *models.Rendered) TaskResult {
	responseText := rendered.Title + "\n\n" + rendered.Text

	return TaskResult{
		ID:   taskID,
		Kind: "task",
		Status: TaskStatus{
			State:     StateCompleted,
			Timestamp: Timestamp(),
			Message: &A2AMessage{
				Kind:      "message",
				Role:      RoleAgent,
				MessageID: uuid.New().String(),
				TaskID:    taskID,
				Parts:     []MessagePart{TextPart(responseText)},
			},
		},
		Artifacts: []Artifact{
			{
				ArtifactID: uuid.New().String(),
				Name:       "smile",
				Parts:      []MessagePart{TextPart(rendered.Text)},
			},
		},
	}
}

func createErrorTaskResult(taskID, state, errorMsg string) TaskResult {
	return TaskResult{
		ID:   taskID,
		Kind: "task",
		Status: TaskStatus{
			State:     state,
			Timestamp: Timestamp(),
			Message: &A2AMessage{
				Kind:      "message",
				Role:      RoleAgent,
				MessageID: uuid.New().String(),
				TaskID:    taskID,
				Parts:     []MessagePart{TextPart(errorMsg)},
			},
		},
	}
}

// ServeAgentCard serves the agent card, pointing its URL at the host the
// request came in on.
func (h *A2AHandler) ServeAgentCard(c *gin.Context) {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	c.JSON(http.StatusOK, h.AgentCard(fmt.Sprintf("%s://%s/a2a/smile", scheme, c.Request.Host)))
}

// AgentCard describes the smile agent served at url.
func (h *A2AHandler) AgentCard(url string) AgentCard {
	return AgentCard{
		Name:               "UMAJA Smile Agent",
		Description:        "Generates short, friendly texts in the voice of the Professor, the Worrier or the Enthusiast.",
		URL:                url,
		Version:            h.version,
		ProtocolVersion:    "0.3.0",
		DefaultInputModes:  []string{"text/plain"},
		DefaultOutputModes: []string{"text/plain"},
		Skills: []Skill{
			{
				ID:          "smile",
				Name:        "Smile",
				Description: "Writes a smile about a topic. Ask with \"archetype: <professor|worrier|enthusiast>, language: <en|de|es>, topic: <topic>\".",
				Tags:        []string{"humor", "content", "multilingual"},
				Examples: []string{
					"archetype: worrier, language: en, topic: coffee",
					"archetype: enthusiast, language: de, topic: Montage",
					"houseplants",
				},
			},
		},
	}
}

func (h *A2AHandler) sendSuccessResponse(c *gin.Context, id interface{}, result interface{}) {
	c.JSON(http.StatusOK, JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

// JSON-RPC errors are sent with 200 OK.
func (h *A2AHandler) sendErrorResponse(c *gin.Context, id interface{}, message string, code int) {
	h.logger.Warn("rpc error", zap.Int("code", code), zap.String("message", message))
	c.JSON(http.StatusOK, JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message},
	})
}
