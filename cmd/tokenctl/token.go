package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/revocation"
	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/token"

	"github.com/spf13/cobra"
)

func newIssueCmd(get func() *toolkit) *cobra.Command {
	var subject string
	var roles []string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a signed token for a subject",
		RunE: func(cmd *cobra.Command, args []string) error {
			if subject == "" {
				return fmt.Errorf("--subject is required")
			}
			extra := map[string]interface{}{"roles": roles}
			raw, claims, err := get().codec.Issue(subject, extra, ttl)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			printField(w, "jti", claims.ID)
			printField(w, "expires_at", claims.ExpiresAt.Format(time.RFC3339))
			fmt.Fprintln(w, raw)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Subject (username)")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Role claim (repeatable)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Time-to-live")
	return cmd
}

func newInspectCmd(get func() *toolkit) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "inspect TOKEN",
		Short: "Validate a token and show its claims and revocation state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tk := get()
			raw := strings.TrimSpace(strings.TrimPrefix(args[0], "Bearer "))
			claims, err := tk.codec.Parse(raw)
			kind := token.KindOf(err)
			if err != nil && kind != token.KindExpired {
				return fmt.Errorf("%s: %w", kind, err)
			}

			revoked, rerr := tk.registry.IsRevoked(cmd.Context(), claims.ID)
			if rerr != nil {
				return rerr
			}
			report := inspectReport{
				Subject:     claims.Subject,
				JTI:         claims.ID,
				IssuedAt:    claims.IssuedAt,
				ExpiresAt:   claims.ExpiresAt,
				Expired:     kind == token.KindExpired,
				Refreshable: tk.codec.CanBeRefreshed(raw),
				Revoked:     revoked,
				Claims:      claims.Extra,
			}
			if revoked {
				if e, err := tk.registry.Lookup(cmd.Context(), claims.ID); err == nil {
					report.Reason = string(e.Reason)
				}
			}

			w := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printField(w, "subject", report.Subject)
			printField(w, "jti", report.JTI)
			printField(w, "issued_at", report.IssuedAt.Format(time.RFC3339))
			printField(w, "expires_at", report.ExpiresAt.Format(time.RFC3339))
			switch {
			case report.Revoked:
				errorColor.Fprintf(w, "REVOKED (%s)\n", report.Reason)
			case report.Expired && report.Refreshable:
				warnColor.Fprintln(w, "EXPIRED (refreshable)")
			case report.Expired:
				errorColor.Fprintln(w, "EXPIRED")
			default:
				successColor.Fprintln(w, "VALID")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

type inspectReport struct {
	Subject     string                 `json:"subject"`
	JTI         string                 `json:"jti"`
	IssuedAt    time.Time              `json:"issued_at"`
	ExpiresAt   time.Time              `json:"expires_at"`
	Expired     bool                   `json:"expired"`
	Refreshable bool                   `json:"refreshable"`
	Revoked     bool                   `json:"revoked"`
	Reason      string                 `json:"reason,omitempty"`
	Claims      map[string]interface{} `json:"claims,omitempty"`
}

func newRevokeCmd(get func() *toolkit) *cobra.Command {
	var jti, reason string
	var expiresIn time.Duration
	cmd := &cobra.Command{
		Use:   "revoke [TOKEN]",
		Short: "Revoke a token by value or by --jti",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tk := get()
			r, err := revocation.ParseReason(reason)
			if err != nil {
				return err
			}
			entry := revocation.Entry{JTI: jti, Reason: r}
			switch {
			case len(args) == 1:
				claims, err := tk.codec.Parse(strings.TrimSpace(args[0]))
				if err != nil && token.KindOf(err) != token.KindExpired {
					return err
				}
				entry.JTI = claims.ID
				entry.Subject = claims.Subject
				entry.ExpiresAt = claims.ExpiresAt
			case jti != "":
				entry.ExpiresAt = time.Now().Add(expiresIn)
			default:
				return fmt.Errorf("a token argument or --jti is required")
			}

			if err := tk.registry.Revoke(cmd.Context(), entry); err != nil {
				return err
			}
			successColor.Fprintf(cmd.OutOrStdout(), "revoked %s (%s) until %s\n",
				entry.JTI, entry.Reason, entry.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&jti, "jti", "", "Token ID when the token itself is not at hand")
	cmd.Flags().StringVar(&reason, "reason", string(revocation.ReasonAdminRevoke), "Revocation reason")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 24*time.Hour, "Natural expiry assumed for --jti")
	return cmd
}
