package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/yangwenmai/mailbrief/internal/engine"
	"github.com/yangwenmai/mailbrief/internal/model"
)

// progressPrinter writes one line per stage boundary.
type progressPrinter struct {
	w io.Writer
}

var (
	stageColor = color.New(color.FgCyan)
	okColor    = color.New(color.FgGreen)
	failColor  = color.New(color.FgRed, color.Bold)
)

var stageLabels = map[string]string{
	engine.StageTrigger:   "Fetching unread emails",
	engine.StageSettle:    "Waiting for the mail fetch to settle",
	engine.StageSummarize: "Processing emails with AI",
	engine.StageRetrieve:  "Finalizing summaries",
}

func (p progressPrinter) RunStarted(runID string) {
	fmt.Fprintf(p.w, "Starting email processing (run %s)\n", runID)
}

func (p progressPrinter) StageStarted(_ string, stage string) {
	stageColor.Fprintf(p.w, "  → %s...\n", stageLabels[stage])
}

func (p progressPrinter) StageFinished(_ string, stage string, d time.Duration, err error) {
	if err != nil {
		failColor.Fprintf(p.w, "  ✗ %s failed after %s\n", stage, d.Round(time.Millisecond))
		return
	}
	okColor.Fprintf(p.w, "  ✓ %s (%s)\n", stage, d.Round(time.Millisecond))
}

func (p progressPrinter) RunFinished(_ string, result *model.PipelineResult, err error) {
	if err != nil {
		failColor.Fprintf(p.w, "Run failed: %s\n", engine.Message(err))
		return
	}
	okColor.Fprintf(p.w, "Successfully processed %d emails and generated %d summaries!\n",
		result.EmailsProcessed, result.SummariesGenerated)
}
