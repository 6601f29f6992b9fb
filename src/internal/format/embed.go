package format

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"logrelay/src/internal/config"
	"logrelay/src/internal/core"

	"github.com/lixenwraith/log"
)

// EmbedFormatter renders entries as Discord embeds: one embed per
// record, titled and colored by severity, with the rendered line in a
// code block. It implements EmbedBatchFormatter, so the webhook sink
// uses its batch path.
type EmbedFormatter struct {
	titles map[string]string
	colors map[string]int
	extra  []embedExtraField
	footer string
	logger *log.Logger
}

type embedExtraField struct {
	name string
	attr string
}

const defaultEmbedColor = 0x3498DB

func defaultTitles() map[string]string {
	return map[string]string{
		core.LevelDebug: "Debugging",
		core.LevelInfo:  "Information",
		core.LevelWarn:  "Warning",
		core.LevelError: "Error",
		core.LevelFatal: "Critical Error",
	}
}

func defaultColors() map[string]int {
	return map[string]int{
		core.LevelDebug: 0x00AAFF,
		core.LevelInfo:  0x3498DB,
		core.LevelWarn:  0xFFFF00,
		core.LevelError: 0xFF5733,
		core.LevelFatal: 0xFF0000,
	}
}

// NewEmbedFormatter creates a Discord embed formatter from
// configuration options.
func NewEmbedFormatter(opts *config.EmbedFormatterOptions, logger *log.Logger) (*EmbedFormatter, error) {
	f := &EmbedFormatter{
		titles: defaultTitles(),
		colors: defaultColors(),
		logger: logger,
	}

	if opts != nil {
		for level, title := range opts.Titles {
			f.titles[core.NormalizeLevel(level)] = title
		}
		for level, color := range opts.Colors {
			f.colors[core.NormalizeLevel(level)] = int(color)
		}
		for name, attr := range opts.ExtraFields {
			f.extra = append(f.extra, embedExtraField{name: name, attr: attr})
		}
		// Map iteration order is random, keep field order stable
		sort.Slice(f.extra, func(i, j int) bool { return f.extra[i].name < f.extra[j].name })
		f.footer = opts.FooterText
	}

	return f, nil
}

// FormatEmbed renders one entry as a Discord embed.
func (f *EmbedFormatter) FormatEmbed(entry core.LogEntry) (core.Embed, error) {
	level := core.NormalizeLevel(entry.Level)

	title, ok := f.titles[level]
	if !ok {
		title = "Log Message"
	}
	color, ok := f.colors[level]
	if !ok {
		color = defaultEmbedColor
	}

	embed := core.Embed{
		Title:       title,
		Description: fmt.Sprintf("```[%s] %s - %s```", level, entry.Source, entry.Message),
		Color:       color,
		Timestamp:   entry.Time.UTC().Format(time.RFC3339),
	}

	if f.footer != "" {
		embed.Footer = &core.EmbedFooter{Text: f.footer}
	}

	for _, extra := range f.extra {
		embed.Fields = append(embed.Fields, core.EmbedField{
			Name:   extra.name,
			Value:  fmt.Sprintf("```%s```", f.attribute(entry, extra.attr)),
			Inline: true,
		})
	}

	return embed, nil
}

// FormatEmbedBatch renders a batch of entries as embeds, preserving
// order. Entries that fail to render are skipped, not fatal for the
// batch.
func (f *EmbedFormatter) FormatEmbedBatch(entries []core.LogEntry) ([]core.Embed, error) {
	embeds := make([]core.Embed, 0, len(entries))
	for _, entry := range entries {
		embed, err := f.FormatEmbed(entry)
		if err != nil {
			f.logger.Warn("msg", "Failed to format entry in batch",
				"component", "embed_formatter",
				"error", err)
			continue
		}
		embeds = append(embeds, embed)
	}
	return embeds, nil
}

// Format satisfies Formatter for non-webhook sinks: the embed as one
// JSON line.
func (f *EmbedFormatter) Format(entry core.LogEntry) ([]byte, error) {
	embed, err := f.FormatEmbed(entry)
	if err != nil {
		return nil, err
	}

	result, err := json.Marshal(embed)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed: %w", err)
	}
	return append(result, '\n'), nil
}

// Name returns the formatter's type name.
func (f *EmbedFormatter) Name() string {
	return "embed"
}

func (f *EmbedFormatter) attribute(entry core.LogEntry, attr string) string {
	switch attr {
	case "message":
		return entry.Message
	case "level":
		return core.NormalizeLevel(entry.Level)
	case "source":
		return entry.Source
	case "timestamp":
		return entry.Time.UTC().Format(time.RFC3339)
	case "fields":
		if len(entry.Fields) == 0 {
			return "N/A"
		}
		return string(entry.Fields)
	default:
		return "N/A"
	}
}
