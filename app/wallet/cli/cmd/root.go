// Package cmd contains wallet app
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var url string

func init() {
	rootCmd.PersistentFlags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
}

var rootCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Your simple wallet for the consortium ledger",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// =============================================================================

// errorResponse matches the error document returned by the node.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// decode reads the node's response into dataRecv, turning an error document
// into an error.
func decode(resp *http.Response, dataRecv any) error {
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil

	case resp.StatusCode != http.StatusOK:
		var er errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
			msg, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("%s: %s", resp.Status, msg)
		}
		if len(er.Fields) > 0 {
			return fmt.Errorf("%s: %v", er.Error, er.Fields)
		}
		return errors.New(er.Error)
	}

	return json.NewDecoder(resp.Body).Decode(dataRecv)
}

// get performs a GET against the node's public API.
func get(path string, dataRecv any) error {
	resp, err := http.Get(url + path)
	if err != nil {
		return err
	}

	return decode(resp, dataRecv)
}
