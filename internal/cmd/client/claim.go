package client

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

// NewClaimCommand returns the `zaqar claim` command group.
func NewClaimCommand(baseURL BaseURLFunc) *cobra.Command {
	claimCmd := &cobra.Command{Use: "claim", Short: "Claim operations"}
	claimCmd.PersistentFlags().String("project", "default", "Project id")
	claimCmd.PersistentFlags().String("queue", "", "Queue name")
	_ = claimCmd.MarkPersistentFlagRequired("queue")

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Claim a batch of free messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, _ := cmd.Flags().GetString("queue")
			project, _ := cmd.Flags().GetString("project")
			ttl, _ := cmd.Flags().GetInt("ttl")
			grace, _ := cmd.Flags().GetInt("grace")
			limit, _ := cmd.Flags().GetInt("limit")

			b, _ := json.Marshal(map[string]interface{}{"ttl": ttl, "grace": grace})
			u := baseURL() + fmt.Sprintf("/v1/queues/%s/claims?limit=%d", queue, limit)
			status, raw, err := call(http.MethodPost, u, project, b)
			if err != nil {
				return err
			}
			printResult(status, raw)
			return nil
		},
	}
	createCmd.Flags().Int("ttl", 300, "Claim TTL in seconds")
	createCmd.Flags().Int("grace", 60, "Grace period in seconds")
	createCmd.Flags().Int("limit", 10, "Maximum number of messages to claim")
	claimCmd.AddCommand(createCmd)

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show a claim and its messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, _ := cmd.Flags().GetString("queue")
			project, _ := cmd.Flags().GetString("project")
			id, _ := cmd.Flags().GetString("id")
			status, raw, err := call(http.MethodGet,
				baseURL()+"/v1/queues/"+queue+"/claims/"+id, project, nil)
			if err != nil {
				return err
			}
			printResult(status, raw)
			return nil
		},
	}
	showCmd.Flags().String("id", "", "Claim id")
	_ = showCmd.MarkFlagRequired("id")
	claimCmd.AddCommand(showCmd)

	renewCmd := &cobra.Command{
		Use:   "renew",
		Short: "Refresh a claim's TTL",
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, _ := cmd.Flags().GetString("queue")
			project, _ := cmd.Flags().GetString("project")
			id, _ := cmd.Flags().GetString("id")
			ttl, _ := cmd.Flags().GetInt("ttl")

			b, _ := json.Marshal(map[string]interface{}{"ttl": ttl})
			status, raw, err := call(http.MethodPatch,
				baseURL()+"/v1/queues/"+queue+"/claims/"+id, project, b)
			if err != nil {
				return err
			}
			printResult(status, raw)
			return nil
		},
	}
	renewCmd.Flags().String("id", "", "Claim id")
	renewCmd.Flags().Int("ttl", 300, "New claim TTL in seconds")
	_ = renewCmd.MarkFlagRequired("id")
	claimCmd.AddCommand(renewCmd)

	releaseCmd := &cobra.Command{
		Use:   "release",
		Short: "Release a claim's messages back to the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, _ := cmd.Flags().GetString("queue")
			project, _ := cmd.Flags().GetString("project")
			id, _ := cmd.Flags().GetString("id")
			status, raw, err := call(http.MethodDelete,
				baseURL()+"/v1/queues/"+queue+"/claims/"+id, project, nil)
			if err != nil {
				return err
			}
			printResult(status, raw)
			return nil
		},
	}
	releaseCmd.Flags().String("id", "", "Claim id")
	_ = releaseCmd.MarkFlagRequired("id")
	claimCmd.AddCommand(releaseCmd)

	return claimCmd
}
