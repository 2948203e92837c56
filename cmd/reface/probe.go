package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/dudu/reface/internal/ffmpeg"
)

func newProbeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "Inspect the streams of a media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			runner := ffmpeg.NewRunner(cfg.FFmpegBinary, cfg.FFprobeBinary)
			result, err := runner.Probe(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderProbe(result))
			return nil
		},
	}
}

func renderProbe(result ffmpeg.Result) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Type", "Codec", "Detail"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	for _, s := range result.Streams {
		tw.AppendRow(table.Row{s.Index, s.CodecType, s.CodecName, streamDetail(s)})
	}

	tw.AppendFooter(table.Row{"", "", "duration",
		fmt.Sprintf("%.2fs", result.DurationSeconds())})

	return tw.Render()
}

func streamDetail(s ffmpeg.Stream) string {
	switch s.CodecType {
	case "video":
		detail := fmt.Sprintf("%dx%d", s.Width, s.Height)
		if fps, ok := s.FrameRate(); ok {
			detail += fmt.Sprintf(" @ %.3g fps", fps)
		}
		return detail
	case "audio":
		return fmt.Sprintf("%s Hz, %d ch", s.SampleRate, s.Channels)
	}
	return ""
}
