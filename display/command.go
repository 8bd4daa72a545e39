// Package display renders command results for humans or as JSON.
package display

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// ShouldOutputJSON reports whether cmd should print JSON: its own --json flag
// when set explicitly, otherwise the root --log-json flag.
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd == nil {
		return false
	}
	if cmd.Flags().Changed("json") {
		jsonFlag, _ := cmd.Flags().GetBool("json")
		return jsonFlag
	}
	if f := cmd.Root().PersistentFlags().Lookup("log-json"); f != nil {
		return f.Value.String() == "true"
	}
	return false
}

// OutputJSON marshals v with MarshalJSON and prints it to w
func OutputJSON(w io.Writer, v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
