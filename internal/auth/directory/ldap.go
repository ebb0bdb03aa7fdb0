package directory

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/traversoft/customer-portal/internal/config"
	"go.uber.org/zap"
)

const dialTimeout = 5 * time.Second

type ldapDirectory struct {
	cfg config.DirectoryConfig
	log *zap.Logger
}

// Provide builds the LDAP directory. When the directory is not configured it
// returns a stub that rejects every attempt with ErrNotEnabled.
func Provide(cfg config.Config, log *zap.Logger) Directory {
	if !cfg.Directory.Configured() {
		return disabled{}
	}
	return &ldapDirectory{
		cfg: cfg.Directory,
		log: log.Named("auth.directory"),
	}
}

func (d *ldapDirectory) Authenticate(ctx context.Context, username, password string) (*User, error) {
	if password == "" {
		// An empty password would turn the user bind into an anonymous
		// bind, which most servers accept.
		return nil, ErrBindFailed
	}

	conn, err := d.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	serviceUPN := d.cfg.ServiceAccount
	if d.cfg.Domain != "" && !strings.Contains(serviceUPN, "@") {
		serviceUPN = serviceUPN + "@" + d.cfg.Domain
	}
	if err := conn.Bind(serviceUPN, d.cfg.ServicePass); err != nil {
		d.log.Error("service account bind failed", zap.Error(err))
		return nil, fmt.Errorf("service bind: %w", err)
	}

	req := ldap.NewSearchRequest(
		d.cfg.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 2, 0, false,
		fmt.Sprintf("(sAMAccountName=%s)", ldap.EscapeFilter(username)),
		[]string{"displayName", "memberOf"},
		nil,
	)
	res, err := conn.Search(req)
	if err != nil {
		return nil, fmt.Errorf("directory search: %w", err)
	}
	if len(res.Entries) != 1 {
		return nil, ErrUserNotFound
	}
	entry := res.Entries[0]

	if err := conn.Bind(entry.DN, password); err != nil {
		var ldapErr *ldap.Error
		if errors.As(err, &ldapErr) && ldapErr.ResultCode == ldap.LDAPResultInvalidCredentials {
			return nil, ErrBindFailed
		}
		return nil, fmt.Errorf("user bind: %w", err)
	}

	displayName := entry.GetAttributeValue("displayName")
	if displayName == "" {
		displayName = username
	}
	return &User{
		Username:    username,
		DisplayName: displayName,
		Groups:      entry.GetAttributeValues("memberOf"),
	}, nil
}

func (d *ldapDirectory) dial(ctx context.Context) (*ldap.Conn, error) {
	scheme := "ldap"
	if d.cfg.Port == 636 {
		scheme = "ldaps"
	}
	url := fmt.Sprintf("%s://%s:%d", scheme, d.cfg.Server, d.cfg.Port)

	dialer := &net.Dialer{Timeout: dialTimeout}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}
	conn, err := ldap.DialURL(url, ldap.DialWithDialer(dialer))
	if err != nil {
		return nil, fmt.Errorf("directory dial: %w", err)
	}
	conn.SetTimeout(dialTimeout)
	return conn, nil
}

type disabled struct{}

func (disabled) Authenticate(context.Context, string, string) (*User, error) {
	return nil, ErrNotEnabled
}
