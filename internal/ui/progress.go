package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

const progressDescriptionTemplateConstant = "Processing %s"

// ProgressIndicator advances a terminal progress bar once per batch item.
type ProgressIndicator struct {
	bar *progressbar.ProgressBar
}

// NewProgressIndicator renders a bar for total items onto writer (stderr when nil).
func NewProgressIndicator(writer io.Writer, total int) *ProgressIndicator {
	if writer == nil {
		writer = os.Stderr
	}
	bar := progressbar.NewOptions(
		total,
		progressbar.OptionSetWriter(writer),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetPredictTime(false),
	)
	return &ProgressIndicator{bar: bar}
}

// Describe labels the bar with the item currently being converted.
func (indicator *ProgressIndicator) Describe(itemName string) {
	if indicator == nil || indicator.bar == nil {
		return
	}
	indicator.bar.Describe(formatProgressDescription(itemName))
}

// Advance marks one more item as finished.
func (indicator *ProgressIndicator) Advance() {
	if indicator == nil || indicator.bar == nil {
		return
	}
	_ = indicator.bar.Add(1)
}

// Finish completes the bar and releases the line.
func (indicator *ProgressIndicator) Finish() {
	if indicator == nil || indicator.bar == nil {
		return
	}
	_ = indicator.bar.Finish()
}

func formatProgressDescription(itemName string) string {
	if len(itemName) == 0 {
		return ""
	}
	return fmt.Sprintf(progressDescriptionTemplateConstant, itemName)
}
