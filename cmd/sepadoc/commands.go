package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/luno/sepadoc"
	"github.com/luno/sepadoc/adapters/viperconfig"
	"github.com/luno/sepadoc/adapters/webui"
)

const dateLayout = "2006-01-02"

func addPeriodFlags(cmd *cobra.Command) {
	cmd.Flags().String("start", "", "first day of the payment period (yyyy-mm-dd), defaults to payment.start")
	cmd.Flags().String("end", "", "last day of the payment period (yyyy-mm-dd), defaults to payment.end")
}

// period reads the payment period from the flags, falling back to the settings.
func period(cmd *cobra.Command, s *sepadoc.Settings) (sepadoc.DateRange, error) {
	dr := s.DateRange()

	for name, dst := range map[string]*time.Time{"start": &dr.Start, "end": &dr.End} {
		v, _ := cmd.Flags().GetString(name)
		if v == "" {
			continue
		}

		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return sepadoc.DateRange{}, fmt.Errorf("invalid --%s: %w", name, err)
		}
		*dst = t
	}

	return dr, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, generate and send every payment request of the period",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			dr, err := period(cmd, a.settings)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			res, err := a.pipeline.RunAll(ctx, dr)
			if err != nil {
				return errors.New(sepadoc.UserMessage(err))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d/%d\n", res.Stage, res.Outcome, res.Completed, res.Total)
			if res.VoucherPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "voucher: %s\n", res.VoucherPath)
			}
			if res.ArchivePath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "archive: %s\n", res.ArchivePath)
			}

			if res.Outcome == sepadoc.OutcomeFailed {
				return errors.New(sepadoc.UserMessage(res.Err))
			}

			return nil
		},
	}

	addPeriodFlags(cmd)
	return cmd
}

func fetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "List the payment requests of the period",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			dr, err := period(cmd, a.settings)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			run, err := a.pipeline.Fetch(ctx, dr)
			if err != nil {
				return err
			}

			res, err := run.Wait(ctx)
			if err != nil {
				return err
			} else if res.Outcome == sepadoc.OutcomeFailed {
				return errors.New(sepadoc.UserMessage(res.Err))
			}

			return printRecords(cmd, a.pipeline.Records())
		},
	}

	addPeriodFlags(cmd)
	return cmd
}

func printRecords(cmd *cobra.Command, records []sepadoc.Record) error {
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), sepadoc.UserMessage(sepadoc.ErrNoRecords))
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, r := range records {
		var attrs []string
		for _, name := range r.AttributeNames() {
			attrs = append(attrs, name+"="+r.Attributes[name].Format())
		}
		fmt.Fprintf(tw, "%s\t%s\n", r.IDString(), strings.Join(attrs, "\t"))
	}

	return tw.Flush()
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web interface and run the configured schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			window, err := viperconfig.Duration(a.settings, sepadoc.KeyScheduleRange, sepadoc.DefaultScheduleWindow)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			srv := &http.Server{
				Addr:              a.settings.StringOr(sepadoc.KeyHTTPAddr, ":8080"),
				Handler:           webui.NewRouter(a.pipeline, a.settings),
				ReadHeaderTimeout: 10 * time.Second,
			}

			eg, ctx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				a.log.Info(ctx, "serving", sepadoc.MKV{"addr": srv.Addr})
				err := srv.ListenAndServe()
				if err == http.ErrServerClosed {
					return nil
				}
				return err
			})

			eg.Go(func() error {
				<-ctx.Done()
				shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				a.pipeline.Cancel()
				return srv.Shutdown(shutdown)
			})

			if spec := a.settings.StringOr(sepadoc.KeyScheduleSpec, ""); spec != "" {
				eg.Go(func() error {
					err := a.pipeline.Schedule(ctx, spec, window)
					if ctx.Err() != nil {
						return nil
					}
					return err
				})
			}

			return eg.Wait()
		},
	}

	return cmd
}

func diagramCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagram",
		Short: "Write the stage state machine as a mermaid diagram",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			direction, _ := cmd.Flags().GetString("direction")

			d := sepadoc.MermaidDirection(strings.ToUpper(direction))
			if out == "" {
				return sepadoc.WriteMermaidDiagram(cmd.OutOrStdout(), d)
			}

			return sepadoc.MermaidDiagram(out, d)
		},
	}

	cmd.Flags().StringP("out", "o", "", "output file, stdout when empty")
	cmd.Flags().String("direction", "LR", "diagram direction: TB, LR, RL or BT")
	return cmd
}
