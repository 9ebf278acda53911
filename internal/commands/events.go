package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	monger "github.com/fnklabs/monger-go"
)

type activityOptions struct {
	customer string
	action   string
	at       string
}

// NewActivityCommand creates the activity command
func NewActivityCommand(global *GlobalOptions) *cobra.Command {
	opts := &activityOptions{}

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Report a customer activity",
		Example: `  monger activity --customer 42 --action login
  monger activity --customer 42 --action checkout --at 2024-05-01T10:00:00+02:00`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			at, err := parseTime("at", opts.at)
			if err != nil {
				return err
			}
			activity := monger.Activity{CustomerID: opts.customer, Action: opts.action, CreatedAt: at}
			return global.report(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), func(ctx context.Context, c *monger.Client) {
				c.ReportActivity(ctx, activity)
			})
		},
	}

	cmd.Flags().StringVar(&opts.customer, "customer", "", "Customer identifier")
	cmd.Flags().StringVar(&opts.action, "action", "", "Action name")
	cmd.Flags().StringVar(&opts.at, "at", "", "Activity time (RFC 3339); the service clock is used when omitted")
	_ = cmd.MarkFlagRequired("customer")
	_ = cmd.MarkFlagRequired("action")

	return cmd
}

type customerOptions struct {
	customer  monger.Customer
	createdAt string
}

// NewCustomerCommand creates the customer command
func NewCustomerCommand(global *GlobalOptions) *cobra.Command {
	opts := &customerOptions{}

	cmd := &cobra.Command{
		Use:     "customer",
		Short:   "Report a newly registered customer",
		Example: `  monger customer --id 42 --initials "J. D." --email jd@example.com --male --age 31 --tag vip`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			created, err := parseTime("created-at", opts.createdAt)
			if err != nil {
				return err
			}
			if created.IsZero() {
				created = time.Now()
			}
			customer := opts.customer
			customer.CreatedAt = created
			return global.report(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), func(ctx context.Context, c *monger.Client) {
				c.ReportNewCustomer(ctx, customer)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.customer.ID, "id", "", "Customer identifier")
	f.StringVar(&opts.customer.Initials, "initials", "", "Customer initials")
	f.StringVar(&opts.customer.Email, "email", "", "Email address")
	f.StringVar(&opts.customer.Phone, "phone", "", "Phone number")
	f.BoolVar(&opts.customer.Male, "male", false, "Report gender as male (female otherwise)")
	f.StringVar(&opts.customer.Country, "country", "", "Country")
	f.StringVar(&opts.customer.City, "city", "", "City")
	f.IntVar(&opts.customer.Age, "age", 0, "Age in years")
	f.StringVar(&opts.createdAt, "created-at", "", "Registration time (RFC 3339); defaults to now")
	f.StringArrayVar(&opts.customer.Tags, "tag", nil, "Tag, may be repeated")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

type paymentOptions struct {
	customer string
	payment  string
	amount   float64
	at       string
}

// NewPaymentCommand creates the payment command
func NewPaymentCommand(global *GlobalOptions) *cobra.Command {
	opts := &paymentOptions{}

	cmd := &cobra.Command{
		Use:     "payment",
		Short:   "Report a payment",
		Example: `  monger payment --customer 42 --payment p-1001 --amount 19.99`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			at, err := parseTime("at", opts.at)
			if err != nil {
				return err
			}
			payment := monger.Payment{CustomerID: opts.customer, PaymentID: opts.payment, Amount: opts.amount, CreatedAt: at}
			return global.report(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), func(ctx context.Context, c *monger.Client) {
				c.ReportNewPayment(ctx, payment)
			})
		},
	}

	cmd.Flags().StringVar(&opts.customer, "customer", "", "Customer identifier")
	cmd.Flags().StringVar(&opts.payment, "payment", "", "Payment identifier")
	cmd.Flags().Float64Var(&opts.amount, "amount", 0, "Payment amount")
	cmd.Flags().StringVar(&opts.at, "at", "", "Payment time (RFC 3339); the service clock is used when omitted")
	_ = cmd.MarkFlagRequired("customer")
	_ = cmd.MarkFlagRequired("payment")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}
