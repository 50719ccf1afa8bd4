package macrosub_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atlasgurus/discoveryd/macrosub"
)

func TestSubstitute_AllTokens(t *testing.T) {
	ctx := macrosub.Context{HostHost: "srv01", HostName: "Server 01", HostIP: "10.0.0.5"}
	result := macrosub.Substitute("{HOST.HOST}/{HOST.NAME}/{HOST.IP}", ctx)
	assert.Equal(t, "srv01/Server 01/10.0.0.5", result)
}

func TestSubstitute_UnknownTokenLeftAlone(t *testing.T) {
	ctx := macrosub.Context{HostHost: "srv01"}
	result := macrosub.Substitute("{#CUSTOM} stays, {HOST.HOST} resolves", ctx)
	assert.Equal(t, "{#CUSTOM} stays, srv01 resolves", result)
}

func TestSubstitute_GlobalRegexpReferenceUntouched(t *testing.T) {
	ctx := macrosub.Context{}
	result := macrosub.Substitute("@my_set", ctx)
	assert.Equal(t, "@my_set", result)
}
