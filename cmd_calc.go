package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"loan-calculator/domain"
	"loan-calculator/render"
	"loan-calculator/service"
)

var (
	calcProduct   string
	calcPrincipal string
	calcMonths    string
	calcStartDate string
	calcCSV       string
	plainOutput   bool
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List the active loan products",
	RunE:  runProducts,
}

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Calculate a repayment schedule",
	Long: `Calculate a repayment schedule and print the summary and schedule.

The period defaults to the product's default term and the start date to today.

Example:
  loan-calculator calc --product DEV --principal 50000 --months 24 --csv dev.csv`,
	RunE: runCalc,
}

func init() {
	calcCmd.Flags().StringVarP(&calcProduct, "product", "p", "", "Product key (default: first product)")
	calcCmd.Flags().StringVarP(&calcPrincipal, "principal", "a", "", "Loan amount in KES")
	calcCmd.Flags().StringVarP(&calcMonths, "months", "m", "", "Repayment period in months")
	calcCmd.Flags().StringVar(&calcStartDate, "start-date", "", "First period start, YYYY-MM-DD (default: today)")
	calcCmd.Flags().StringVar(&calcCSV, "csv", "", "Also write the schedule to this CSV file")

	for _, c := range []*cobra.Command{productsCmd, calcCmd} {
		c.Flags().BoolVar(&plainOutput, "plain", false, "Disable colours and borders")
	}
}

func outputStyles() render.Styles {
	if plainOutput {
		return render.PlainStyles()
	}
	return render.DefaultStyles()
}

func runProducts(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gateway, cleanup := newGateway(ctx)
	defer cleanup()

	products, err := gateway.ListProducts(ctx)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), render.NoProductsHint)
		return nil
	}

	s := outputStyles()
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.Label).
		Headers("Key", "Name", "Rate (per month)", "Default Months").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.Header
			}
			return s.Cell
		})
	for _, p := range products {
		t.Row(p.ProductKey, p.LoanName, domain.FormatRatePct(p.RatePct()), fmt.Sprint(p.DefaultTermMonths))
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.String())
	return nil
}

func runCalc(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gateway, cleanup := newGateway(ctx)
	defer cleanup()

	ctrl := service.NewController(gateway, log)
	calcErr := fillAndCalculate(ctx, ctrl)

	page := render.BuildPage(ctrl.Snapshot())
	if calcErr != nil && page.Error == "" {
		page.Error = calcErr.Error()
	}
	fmt.Fprint(cmd.OutOrStdout(), render.Text(page, outputStyles()))
	if calcErr != nil {
		return calcErr
	}

	if calcCSV != "" {
		if err := writeScheduleCSV(ctrl.Snapshot(), calcCSV); err != nil {
			return err
		}
		log.Info("schedule exported", zap.String("path", calcCSV))
	}
	return nil
}

func fillAndCalculate(ctx context.Context, ctrl *service.Controller) error {
	if err := ctrl.LoadProducts(ctx); err != nil {
		return err
	}
	if calcProduct != "" {
		if err := ctrl.SelectProduct(calcProduct); err != nil {
			return err
		}
	}
	edits := []struct {
		value string
		set   func(string) error
	}{
		{calcMonths, ctrl.SetMonths},
		{calcStartDate, ctrl.SetStartDate},
		{calcPrincipal, ctrl.SetPrincipal},
	}
	for _, e := range edits {
		if e.value == "" {
			continue
		}
		if err := e.set(e.value); err != nil {
			return err
		}
	}
	return ctrl.Calculate(ctx)
}

func writeScheduleCSV(v service.View, path string) error {
	if v.Result == nil {
		return errors.New("no schedule to export")
	}
	f, err := os.Create(path) // #nosec G304 -- operator-supplied path
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render.WriteCSV(f, v.Result.Schedule); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
