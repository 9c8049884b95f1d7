package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// Los subcomandos client son una consola fina sobre la API HTTP admin
// para que un operador registre tenants sin armar curls a mano.

type adminClient struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func (c *adminClient) do(method, path string, body []byte) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("X-Admin-API-Key", c.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *adminClient) print(body []byte) {
	var v any
	if json.Unmarshal(body, &v) == nil {
		p, _ := json.MarshalIndent(v, "", "  ")
		fmt.Println(string(p))
		return
	}
	fmt.Println(string(body))
}

func clientCmd() *cobra.Command {
	var (
		baseURL = envOr("AUTHBROKER_ADMIN_URL", "http://localhost:8080")
		apiKey  = envOr("AUTHBROKER_ADMIN_API_KEY", "")
	)

	root := &cobra.Command{
		Use:   "client",
		Short: "Manage registered clients via the admin API",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if apiKey == "" {
				return fmt.Errorf("missing admin API key (flag --admin-api-key or env AUTHBROKER_ADMIN_API_KEY)")
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&baseURL, "admin-api-url", baseURL, "admin API base URL (env AUTHBROKER_ADMIN_URL)")
	root.PersistentFlags().StringVar(&apiKey, "admin-api-key", apiKey, "admin API key (env AUTHBROKER_ADMIN_API_KEY)")

	cl := func() *adminClient {
		return &adminClient{BaseURL: baseURL, APIKey: apiKey, HTTP: &http.Client{Timeout: 30 * time.Second}}
	}

	var (
		name      string
		origins   []string
		redirects []string
		logoURL   string
		gID, gSec string
		fID, fSec string
	)
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new client and print its token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" || len(redirects) == 0 || len(origins) == 0 {
				return fmt.Errorf("--name, --redirect-url and --origin are required")
			}
			payload := map[string]any{
				"name":                 name,
				"allowed_origins":      origins,
				"redirect_urls":        redirects,
				"logo_url":             logoURL,
				"google_client_id":     gID,
				"google_client_secret": gSec,
				"facebook_app_id":      fID,
				"facebook_app_secret":  fSec,
			}
			b, _ := json.Marshal(payload)
			status, body, err := cl().do("POST", "/api/admin/clients/", b)
			if err != nil {
				return err
			}
			cl().print(body)
			if status/100 != 2 {
				return fmt.Errorf("create failed: status=%d", status)
			}
			return nil
		},
	}
	createCmd.Flags().StringVar(&name, "name", "", "client display name")
	createCmd.Flags().StringSliceVar(&origins, "origin", nil, "allowed origin (repeatable, * suffix wildcards supported)")
	createCmd.Flags().StringSliceVar(&redirects, "redirect-url", nil, "allowed redirect URL prefix (repeatable)")
	createCmd.Flags().StringVar(&logoURL, "logo-url", "", "logo shown on the login page")
	createCmd.Flags().StringVar(&gID, "google-client-id", "", "tenant Google OAuth client id")
	createCmd.Flags().StringVar(&gSec, "google-client-secret", "", "tenant Google OAuth client secret")
	createCmd.Flags().StringVar(&fID, "facebook-app-id", "", "tenant Facebook app id")
	createCmd.Flags().StringVar(&fSec, "facebook-app-secret", "", "tenant Facebook app secret")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl().do("GET", "/api/admin/clients/", nil)
			if err != nil {
				return err
			}
			cl().print(body)
			if status/100 != 2 {
				return fmt.Errorf("list failed: status=%d", status)
			}
			return nil
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl().do("GET", "/api/admin/clients/"+args[0], nil)
			if err != nil {
				return err
			}
			cl().print(body)
			if status/100 != 2 {
				return fmt.Errorf("get failed: status=%d", status)
			}
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a client registration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl().do("DELETE", "/api/admin/clients/"+args[0], nil)
			if err != nil {
				return err
			}
			cl().print(body)
			if status/100 != 2 {
				return fmt.Errorf("delete failed: status=%d", status)
			}
			return nil
		},
	}

	root.AddCommand(createCmd, listCmd, getCmd, deleteCmd)
	return root
}
