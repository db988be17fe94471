package password

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	t.Run("hash verifies against its plaintext", func(t *testing.T) {
		hash, err := Hash("longenoughpw")
		require.NoError(t, err)
		require.NotEmpty(t, hash)
		require.NotEqual(t, "longenoughpw", hash)
		require.True(t, Verify("longenoughpw", hash))
	})

	t.Run("two hashes of one plaintext differ but both verify", func(t *testing.T) {
		first, err := Hash("correct horse battery")
		require.NoError(t, err)
		second, err := Hash("correct horse battery")
		require.NoError(t, err)

		require.NotEqual(t, first, second)
		require.True(t, Verify("correct horse battery", first))
		require.True(t, Verify("correct horse battery", second))
	})

	t.Run("different plaintext does not verify", func(t *testing.T) {
		hash, err := Hash("password-one")
		require.NoError(t, err)
		require.False(t, Verify("password-two", hash))
	})

	t.Run("malformed hash is a failed match", func(t *testing.T) {
		require.False(t, Verify("whatever", "not-a-bcrypt-hash"))
		require.False(t, Verify("whatever", ""))
	})
}
