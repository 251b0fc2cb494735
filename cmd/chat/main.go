package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ai-notetaking-client/internal/config"
	"ai-notetaking-client/internal/dto"
	"ai-notetaking-client/internal/handler"
	"ai-notetaking-client/internal/pkg/logger"
	"ai-notetaking-client/internal/pkg/tokens"
	"ai-notetaking-client/internal/repository/memory"
	"ai-notetaking-client/internal/tracer"
	"ai-notetaking-client/pkg/auth"
	"ai-notetaking-client/pkg/events"
	"ai-notetaking-client/pkg/stream"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/fatih/color"
	"github.com/google/uuid"
)

// renderInterval is how often the terminal view is refreshed from the
// session snapshot while a reply is streaming.
const renderInterval = 50 * time.Millisecond

func main() {
	cfg := config.Load()

	log := logger.NewIsolatedLogger(cfg.App.LogFilePath)
	defer log.Sync()

	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// In-process pub/sub for the cache invalidation signal.
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	queryCache := memory.NewQueryCache()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	invalidationHandler := handler.NewInvalidationHandler(pubSub, queryCache, log)
	if err := invalidationHandler.Consume(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start invalidation consumer: %v\n", err)
		os.Exit(1)
	}

	conversationId := uuid.New()
	scheduler := events.NewInvalidationScheduler(pubSub, log)
	defer scheduler.Flush()

	session := stream.NewSession(log, tokens.Estimate, tokens.EstimateContext, func() {
		scheduler.Schedule(conversationId)
	})
	controller := stream.NewController(
		cfg.Api.BaseURL,
		nil,
		auth.NewStaticTokenProvider(cfg.Api.Token),
		session,
		log,
	)

	color.Cyan("Chat client connected to %s (conversation %s)", cfg.Api.BaseURL, conversationId)
	color.Cyan("Type a message and press enter. Ctrl+C cancels a running reply or exits.")

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print(color.GreenString("You: "))
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		content := strings.TrimSpace(line)
		if content == "" {
			continue
		}
		if content == "/quit" {
			return
		}

		runStream(ctx, controller, conversationId, content, cfg)
		if ctx.Err() != nil {
			return
		}
	}
}

func runStream(ctx context.Context, controller *stream.Controller, conversationId uuid.UUID, content string, cfg *config.Config) {
	controller.Reset()
	request := &dto.SendMessageRequest{
		Content:      content,
		Temperature:  cfg.Stream.Temperature,
		MaxTokens:    cfg.Stream.MaxTokens,
		Capabilities: cfg.Stream.Capabilities,
	}
	if err := controller.Start(ctx, conversationId, request); err != nil {
		color.Red("Failed to start stream: %v", err)
		return
	}

	render(ctx, controller)
	controller.Wait()
	printSummary(controller.Snapshot())
}

// render polls the session snapshot and prints whatever arrived since the
// previous poll: new answer text as it streams, thinking steps and tool
// activity as they are discovered.
func render(ctx context.Context, controller *stream.Controller) {
	printedVisible := 0
	seenThinking := 0
	seenTools := 0

	thinkingColor := color.New(color.FgYellow, color.Faint)
	toolColor := color.New(color.FgMagenta)

	fmt.Print(color.BlueString("AI: "))
	ticker := time.NewTicker(renderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			controller.Cancel()
			return
		case <-ticker.C:
		}

		snap := controller.Snapshot()

		for ; seenThinking < len(snap.ThinkingSteps); seenThinking++ {
			thinkingColor.Printf("\n[thinking] %s\n", snap.ThinkingSteps[seenThinking].Content)
		}
		for ; seenTools < len(snap.ToolExecutions); seenTools++ {
			toolColor.Printf("\n[tool] %s (%s)\n", snap.ToolExecutions[seenTools].Tool, snap.ToolExecutions[seenTools].Status)
		}
		if visible := visibleText(snap.MessageText); len(visible) > printedVisible {
			fmt.Print(visible[printedVisible:])
			printedVisible = len(visible)
		}
		if snap.ProcessingStatus != "" {
			thinkingColor.Printf("\r[%s]", snap.ProcessingStatus)
		}

		if snap.Status != stream.StatusStreaming {
			fmt.Println()
			return
		}
	}
}

// visibleText drops thinking tags from the printed answer; the steps are
// rendered separately.
func visibleText(text string) string {
	for _, tag := range []string{"thinking", "think"} {
		text = strings.ReplaceAll(text, "<"+tag+">", "")
		text = strings.ReplaceAll(text, "</"+tag+">", "")
	}
	return text
}

func printSummary(snap stream.Snapshot) {
	switch snap.Status {
	case stream.StatusErrored:
		color.Red("Stream failed: %s", snap.Error)
	case stream.StatusCancelled:
		color.Yellow("Stream cancelled.")
	}

	stats := make([]string, 0, 3)
	if snap.InputTokenEstimate != nil {
		stats = append(stats, fmt.Sprintf("input ~%d tokens", *snap.InputTokenEstimate))
	}
	if snap.OutputTokenEstimate != nil {
		stats = append(stats, fmt.Sprintf("output ~%d tokens", *snap.OutputTokenEstimate))
	}
	if snap.DurationMs != nil {
		stats = append(stats, fmt.Sprintf("%dms", *snap.DurationMs))
	}
	if len(stats) > 0 {
		color.New(color.Faint).Printf("(%s)\n", strings.Join(stats, ", "))
	}
	if snap.RetrievedContext != nil && len(snap.RetrievedContext.Notes) > 0 {
		color.New(color.Faint).Printf("(%d notes retrieved)\n", len(snap.RetrievedContext.Notes))
	}
}
