package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/go-prayer-verify/internal/verification"
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		email  string
		action string
		data   string
		code   string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Request a code for an action and redeem it",
		Long: "Request a one-time code bound to --action and --data, then read the code\n" +
			"from --code or stdin. Enter \"r\" to resend, an empty line to give up.\n" +
			"On success the verified action is printed as JSON.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cache, err := a.cache(ctx)
			if err != nil {
				return err
			}
			client := a.client()
			gate := verification.ResolveGate(ctx, client, a.logger)
			flow := verification.NewFlow(gate, cache, client,
				verification.WithTimeout(a.cfg.ClientTimeout),
				verification.WithSessionTTL(a.cfg.SessionTTL),
				verification.WithLogger(a.logger),
			)

			payload := json.RawMessage(data)
			out := cmd.OutOrStdout()
			issued, err := flow.RequestCode(ctx, email, action, payload)
			if err != nil {
				return err
			}
			if issued == nil {
				fmt.Fprintln(out, "verification not required")
				return printAction(out, verification.VerifiedAction{ActionType: action, ActionData: payload, Email: email})
			}
			fmt.Fprintf(out, "code sent to %s (expires %s)\n", email, issued.ExpiresAt.Local().Format("15:04:05"))

			in := bufio.NewScanner(cmd.InOrStdin())
			for {
				entered := code
				code = ""
				if entered == "" {
					fmt.Fprint(out, "code: ")
					if !in.Scan() {
						return fmt.Errorf("no code entered")
					}
					entered = strings.TrimSpace(in.Text())
				}
				switch entered {
				case "":
					flow.Reset()
					return fmt.Errorf("cancelled")
				case "r":
					if issued, err = flow.RequestCode(ctx, email, action, payload); err != nil {
						return err
					}
					if issued == nil {
						fmt.Fprintln(out, "verification not required")
						return printAction(out, verification.VerifiedAction{ActionType: action, ActionData: payload, Email: email})
					}
					fmt.Fprintf(out, "new code sent (expires %s)\n", issued.ExpiresAt.Local().Format("15:04:05"))
					continue
				}

				pending, _ := flow.Pending()
				res, err := flow.VerifyCode(ctx, pending.CodeID, entered)
				if err != nil {
					fmt.Fprintf(out, "error: %s\n", err)
					continue
				}
				return printAction(out, *res)
			}
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address to verify")
	cmd.Flags().StringVar(&action, "action", "", "action type, e.g. prayer_update")
	cmd.Flags().StringVar(&data, "data", "{}", "action payload as JSON")
	cmd.Flags().StringVar(&code, "code", "", "code to submit instead of prompting")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("action")
	return cmd
}

func printAction(w io.Writer, v verification.VerifiedAction) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		ActionType string          `json:"actionType"`
		ActionData json.RawMessage `json:"actionData"`
		Email      string          `json:"email"`
	}{v.ActionType, v.ActionData, v.Email})
}
