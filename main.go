package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fjacquet/statement-csv/cmd/batch"
	"fjacquet/statement-csv/cmd/categorize"
	"fjacquet/statement-csv/cmd/history"
	"fjacquet/statement-csv/cmd/learn"
	"fjacquet/statement-csv/cmd/convert"
	"fjacquet/statement-csv/cmd/report"
	"fjacquet/statement-csv/cmd/root"
)

func init() {
	root.Init()

	root.Cmd.AddCommand(convert.Cmd)
	root.Cmd.AddCommand(batch.Cmd)
	root.Cmd.AddCommand(categorize.Cmd)
	root.Cmd.AddCommand(learn.Cmd)
	root.Cmd.AddCommand(history.Cmd)
	root.Cmd.AddCommand(report.Cmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.Cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
