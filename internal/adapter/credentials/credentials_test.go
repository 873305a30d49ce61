package credentials

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnonymous(t *testing.T) {
	c, err := Anonymous.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Credentials{Login: "anonymous", Password: "anonymous"}, c)
}

func TestStatic(t *testing.T) {
	c, err := Static{Login: "researcher", Password: "s3cret"}.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "researcher", c.Login)
	assert.Equal(t, "s3cret", c.Password)
}

func TestEnv(t *testing.T) {
	t.Run("defaults to anonymous", func(t *testing.T) {
		t.Setenv("FETCHCLIMATE_LOGIN", "")
		t.Setenv("FETCHCLIMATE_PASSWORD", "")
		c, err := Env{}.Credentials(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Credentials(Anonymous), c)
	})

	t.Run("reads environment on each call", func(t *testing.T) {
		t.Setenv("FETCHCLIMATE_LOGIN", "first")
		c, err := Env{}.Credentials(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "first", c.Login)

		t.Setenv("FETCHCLIMATE_LOGIN", "second")
		c, err = Env{}.Credentials(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "second", c.Login)
	})
}
