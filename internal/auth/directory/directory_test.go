package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemberOf(t *testing.T) {
	user := &User{
		Username: "jane",
		Groups: []string{
			"CN=Portal Admins,OU=Groups,DC=corp,DC=example,DC=com",
			"CN=Staff,OU=Groups,DC=corp,DC=example,DC=com",
		},
	}

	assert.True(t, user.MemberOf("Portal Admins"))
	assert.True(t, user.MemberOf("portal admins"))
	assert.False(t, user.MemberOf("Portal"))
	assert.False(t, user.MemberOf("Domain Admins"))

	empty := &User{Username: "joe"}
	assert.False(t, empty.MemberOf("Portal Admins"))
}
