package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"toolgate/pkg/config"
	"toolgate/pkg/proxy"
	"toolgate/pkg/proxy/middleware"
	"toolgate/pkg/proxy/types"
	"toolgate/pkg/telemetry/metrics"
	"toolgate/pkg/upstream"
)

// ChatHandler serves POST /v1/chat/completions. It runs the translation
// pipeline: filter history, compile and inject the tool prompt, resolve the
// relay mode, dispatch upstream, and on the buffered path extract call
// markup and reassemble the response.
type ChatHandler struct {
	Client    *upstream.Client
	Defaults  config.GenerationDefaults
	Collector *metrics.Collector
}

// NewChatHandler creates the chat completions handler. collector may be nil
// when metrics are disabled.
func NewChatHandler(client *upstream.Client, defaults config.GenerationDefaults, collector *metrics.Collector) *ChatHandler {
	return &ChatHandler{Client: client, Defaults: defaults, Collector: collector}
}

// ServeHTTP implements http.Handler.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	start := time.Now()

	if r.Method != http.MethodPost {
		errResp := types.NewInvalidRequestError(
			"Method "+r.Method+" not allowed. Use POST instead.",
			"method",
			"method_not_allowed",
		)
		h.writeError(w, r, errResp)
		return
	}

	chatReq, err := proxy.ParseChatCompletionRequest(r)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse request",
			"request_id", requestID,
			"error", err,
		)
		h.writeError(w, r, proxy.HandleError(err))
		return
	}

	slog.InfoContext(ctx, "processing chat completion request",
		"request_id", requestID,
		"model", chatReq.Model,
		"messages", len(chatReq.Messages),
		"tools", len(chatReq.Tools),
		"stream_requested", chatReq.Stream,
	)

	// Transform the history, then compile the tool catalog into the single
	// system message. The streaming decision looks at the ORIGINAL history:
	// a tool role there marks the follow-up turn.
	messages := proxy.FilterMessages(chatReq.Messages)
	if len(chatReq.Tools) > 0 {
		prompt := proxy.BuildToolPrompt(chatReq.Tools)
		messages = proxy.InjectToolPrompt(messages, prompt)
		slog.DebugContext(ctx, "injected tool prompt",
			"request_id", requestID,
			"prompt_bytes", len(prompt),
		)
	}

	streamed := proxy.ShouldStream(chatReq.Messages, chatReq.Tools, chatReq.Stream)
	if chatReq.Stream && !streamed {
		slog.DebugContext(ctx, "forcing buffered relay for first tool turn",
			"request_id", requestID,
		)
	}

	upReq := h.buildUpstreamRequest(chatReq, messages, streamed)

	if streamed {
		h.relayStream(w, r, upReq, start)
		return
	}

	h.completeBuffered(w, r, chatReq, upReq, start)
}

// buildUpstreamRequest assembles the outbound body: transformed messages,
// sampling defaults for omitted fields, resolved stream flag, and never the
// tool catalog.
func (h *ChatHandler) buildUpstreamRequest(chatReq *types.ChatCompletionRequest, messages []types.Message, streamed bool) *upstream.ChatRequest {
	upReq := &upstream.ChatRequest{
		Model:       chatReq.Model,
		Messages:    messages,
		Temperature: h.Defaults.Temperature,
		MaxTokens:   h.Defaults.MaxTokens,
		Stop:        chatReq.Stop,
		Stream:      streamed,
	}

	if chatReq.Temperature != nil {
		upReq.Temperature = *chatReq.Temperature
	}
	if chatReq.MaxTokens != nil {
		upReq.MaxTokens = *chatReq.MaxTokens
	}
	if chatReq.TopP != nil {
		upReq.TopP = *chatReq.TopP
	}

	return upReq
}

// completeBuffered executes the buffered path: full upstream call, markup
// extraction, reassembly, JSON response.
func (h *ChatHandler) completeBuffered(w http.ResponseWriter, r *http.Request, chatReq *types.ChatCompletionRequest, upReq *upstream.ChatRequest, start time.Time) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	resp, err := h.Client.ChatCompletion(ctx, upReq)
	if err != nil {
		slog.ErrorContext(ctx, "upstream request failed",
			"request_id", requestID,
			"model", upReq.Model,
			"error", err,
		)
		if h.Collector != nil {
			h.Collector.RecordUpstream("buffered", "error")
		}
		errResp := proxy.HandleError(err)
		h.writeError(w, r, errResp)
		h.recordRequest(r, errResp.Error.HTTPStatusCode(), start)
		return
	}
	if h.Collector != nil {
		h.Collector.RecordUpstream("buffered", "success")
	}

	var calls []types.ToolCall
	if len(chatReq.Tools) > 0 {
		content := resp.Choices[0].Message.Content
		var skipped int
		calls, skipped = proxy.ExtractToolCalls(content)
		if h.Collector != nil {
			h.Collector.RecordExtraction(len(calls), skipped)
		}
		if len(calls) > 0 {
			slog.InfoContext(ctx, "extracted tool calls",
				"request_id", requestID,
				"calls", len(calls),
				"skipped_blocks", skipped,
			)
		}
	}

	proxy.Reassemble(resp, calls)

	slog.InfoContext(ctx, "chat completion successful",
		"request_id", requestID,
		"model", upReq.Model,
		"finish_reason", resp.Choices[0].FinishReason,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	if err := proxy.WriteJSONResponse(w, http.StatusOK, resp); err != nil {
		slog.ErrorContext(ctx, "failed to write response",
			"request_id", requestID,
			"error", err,
		)
		return
	}
	h.recordRequest(r, http.StatusOK, start)
}

// relayStream forwards the upstream's streamed payload verbatim, flushing
// each read so chunks reach the client as they arrive. A mid-stream upstream
// failure aborts the client connection so its read fails instead of
// observing a clean end of stream; there is no buffered fallback.
func (h *ChatHandler) relayStream(w http.ResponseWriter, r *http.Request, upReq *upstream.ChatRequest, start time.Time) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	body, err := h.Client.Stream(ctx, upReq)
	if err != nil {
		slog.ErrorContext(ctx, "upstream stream failed to open",
			"request_id", requestID,
			"error", err,
		)
		if h.Collector != nil {
			h.Collector.RecordUpstream("stream", "error")
		}
		errResp := proxy.HandleError(err)
		h.writeError(w, r, errResp)
		h.recordRequest(r, errResp.Error.HTTPStatusCode(), start)
		return
	}
	defer body.Close()

	proxy.SetSSEHeaders(w)
	flusher, _ := w.(http.Flusher)

	buf := make([]byte, 4096)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				// Client went away; cancelling ctx closes the upstream
				// connection via the deferred body.Close.
				slog.WarnContext(ctx, "client disconnected during stream",
					"request_id", requestID,
					"error", writeErr,
				)
				h.recordRequest(r, http.StatusOK, start)
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			slog.ErrorContext(ctx, "upstream stream terminated",
				"request_id", requestID,
				"error", readErr,
			)
			if h.Collector != nil {
				h.Collector.RecordUpstream("stream", "error")
			}
			h.recordRequest(r, http.StatusBadGateway, start)
			// Abort the connection; a clean chunked terminator here would
			// hand the client a truncated stream that looks complete.
			panic(http.ErrAbortHandler)
		}
	}

	if h.Collector != nil {
		h.Collector.RecordUpstream("stream", "success")
	}

	slog.InfoContext(ctx, "streamed chat completion finished",
		"request_id", requestID,
		"model", upReq.Model,
	)
	h.recordRequest(r, http.StatusOK, start)
}

func (h *ChatHandler) writeError(w http.ResponseWriter, r *http.Request, errResp *types.ErrorResponse) {
	if err := proxy.WriteErrorResponse(w, errResp); err != nil {
		slog.ErrorContext(r.Context(), "failed to write error response", "error", err)
	}
}

func (h *ChatHandler) recordRequest(r *http.Request, status int, start time.Time) {
	if h.Collector == nil {
		return
	}
	h.Collector.RecordRequest(r.URL.Path, strconv.Itoa(status), time.Since(start))
}
