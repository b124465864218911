package secrets

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"
)

// Service groups the application's secrets in the OS keychain.
const Service = "linkedin-applier"

// Keyring accounts used by the application.
const (
	AccountLinkedInPassword = "linkedin-password"
	AccountGeminiAPIKey     = "gemini-api-key"
)

// Accounts lists the keyring accounts the cli knows how to manage.
func Accounts() []string {
	return []string{AccountLinkedInPassword, AccountGeminiAPIKey}
}

// Store saves a secret in the OS keyring.
func Store(account, secret string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(secret) == "" {
		return errors.New("secret is empty")
	}
	return keyring.Set(Service, account, strings.TrimSpace(secret))
}

// Delete removes a secret from the OS keyring.
func Delete(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(Service, account)
}
