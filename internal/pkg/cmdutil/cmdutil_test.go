/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmdutil_test

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/fedipress/fedipress/internal/pkg/cmdutil"
)

func newTestCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test", Run: func(*cobra.Command, []string) {}}

	cmd.Flags().StringP("host", "", "", "usage")
	cmd.Flags().StringArrayP("values", "", nil, "usage")

	return cmd
}

func TestGetString(t *testing.T) {
	t.Run("from flag", func(t *testing.T) {
		cmd := newTestCmd()
		require.NoError(t, cmd.Flags().Set("host", "localhost:8080"))

		value, err := cmdutil.GetString(cmd, "host", "TEST_HOST", false)
		require.NoError(t, err)
		require.Equal(t, "localhost:8080", value)
	})

	t.Run("from env", func(t *testing.T) {
		t.Setenv("TEST_HOST", "localhost:9090")

		value, err := cmdutil.GetString(newTestCmd(), "host", "TEST_HOST", false)
		require.NoError(t, err)
		require.Equal(t, "localhost:9090", value)
	})

	t.Run("required and unset", func(t *testing.T) {
		_, err := cmdutil.GetString(newTestCmd(), "host", "TEST_HOST_UNSET", false)
		require.Error(t, err)
		require.Contains(t, err.Error(), "have been set")
	})

	t.Run("optional and unset", func(t *testing.T) {
		require.Empty(t, cmdutil.GetOptionalString(newTestCmd(), "host", "TEST_HOST_UNSET"))
	})
}

func TestGetStringArray(t *testing.T) {
	t.Run("from flag", func(t *testing.T) {
		cmd := newTestCmd()
		require.NoError(t, cmd.Flags().Set("values", "a"))
		require.NoError(t, cmd.Flags().Set("values", "b"))

		values, err := cmdutil.GetStringArray(cmd, "values", "TEST_VALUES", false)
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b"}, values)
	})

	t.Run("from env", func(t *testing.T) {
		t.Setenv("TEST_VALUES", "a,b,c")

		values, err := cmdutil.GetStringArray(newTestCmd(), "values", "TEST_VALUES", false)
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b", "c"}, values)
	})

	t.Run("required and unset", func(t *testing.T) {
		_, err := cmdutil.GetStringArray(newTestCmd(), "values", "TEST_VALUES_UNSET", false)
		require.Error(t, err)
	})
}
