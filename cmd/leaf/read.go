package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/leaf/internal/api"
	"github.com/jackzampolin/leaf/internal/mirrors"
	"github.com/jackzampolin/leaf/internal/navigator"
	"github.com/jackzampolin/leaf/internal/reader"
	"github.com/jackzampolin/leaf/internal/session"
)

var (
	readPercent   float64
	readByte      int64
	readPages     int
	readChunkSize int
	readProgress  bool
)

var readCmd = &cobra.Command{
	Use:   "read <book-id>",
	Short: "Read chunks of a book without a server",
	Long: `Read chunks of a book directly from the mirrors.

Without --percent or --byte the first chunk of the content is read.
Each chunk is printed in the selected output format.

Examples:
  leaf read 1342                     # First chunk of Pride and Prejudice
  leaf read 1342 --percent 50        # Chunk at the middle of the content
  leaf read 1342 --byte 40000 -p 3   # Three chunks from byte 40000
  leaf read 1342 --progress          # Show mirror activity on stderr`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		bookID := args[0]

		if cmd.Flags().Changed("percent") && cmd.Flags().Changed("byte") {
			return errors.New("--percent and --byte are mutually exclusive")
		}
		if readPages < 1 {
			return errors.New("--pages must be at least 1")
		}

		cfgMgr, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger()

		sink := mirrors.LogSink(logger)
		if readProgress {
			sink = mirrors.MultiSink(sink, func(e mirrors.Event) {
				fmt.Fprintln(os.Stderr, e.String())
			})
		}

		stack, err := reader.New(cfgMgr.Get(), logger, sink)
		if err != nil {
			return err
		}

		sess, err := stack.Sessions.Open(ctx, bookID, readChunkSize)
		if err != nil {
			return err
		}
		defer stack.Sessions.Close(sess.ID)

		var pos navigator.Position
		switch {
		case cmd.Flags().Changed("percent"):
			pos, err = sess.GoToPercent(ctx, readPercent)
		case cmd.Flags().Changed("byte"):
			pos, err = sess.GoToByte(ctx, readByte)
		default:
			pos, err = sess.Next(ctx)
		}
		if err != nil {
			return err
		}
		if err := api.Output(pos); err != nil {
			return err
		}

		for i := 1; i < readPages; i++ {
			pos, err = sess.Next(ctx)
			if errors.Is(err, session.ErrEndOfBook) {
				return nil
			}
			if err != nil {
				return err
			}
			if err := api.Output(pos); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	readCmd.Flags().Float64Var(&readPercent, "percent", 0, "position as a percentage of the content (0-100)")
	readCmd.Flags().Int64Var(&readByte, "byte", 0, "position as an absolute byte offset")
	readCmd.Flags().IntVarP(&readPages, "pages", "p", 1, "number of consecutive chunks to read")
	readCmd.Flags().IntVar(&readChunkSize, "chunk-size", 0, "words per chunk (default from config)")
	readCmd.Flags().BoolVar(&readProgress, "progress", false, "print mirror events to stderr")

	rootCmd.AddCommand(readCmd)
}
