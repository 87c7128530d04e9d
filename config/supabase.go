package config

import (
	"fmt"
	"log"
	"os"

	supa "github.com/supabase-community/supabase-go"
)

var SupabaseClient *supa.Client

// DefaultSessionCookieName is used unless SESSION_COOKIE_NAME overrides it.
const DefaultSessionCookieName = "atelier_session"

// InitSupabase initializes the Supabase client using environment variables.
func InitSupabase() error {
	supabaseURL := os.Getenv("SUPABASE_URL")
	if supabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is not set")
	}

	// Prefer the service key; board access checks run in the gateway, so the
	// client must be able to read rows regardless of row-level security.
	supabaseKey := os.Getenv("SUPABASE_SERVICE_KEY")
	if supabaseKey == "" {
		supabaseKey = os.Getenv("SUPABASE_ANON_KEY")
		if supabaseKey == "" {
			return fmt.Errorf("neither SUPABASE_SERVICE_KEY nor SUPABASE_ANON_KEY is set")
		}
		log.Println("Warning: Using anonymous key for Supabase. Set SUPABASE_SERVICE_KEY for full access.")
	}

	client, err := supa.NewClient(supabaseURL, supabaseKey, nil)
	if err != nil {
		return fmt.Errorf("initializing Supabase client: %w", err)
	}

	SupabaseClient = client
	log.Println("Supabase client initialized successfully.")
	return nil
}

// GetSupabaseClient returns the initialized Supabase client.
func GetSupabaseClient() *supa.Client {
	if SupabaseClient == nil {
		log.Println("Warning: Supabase client accessed before initialization.")
		if err := InitSupabase(); err != nil {
			log.Printf("Error initializing Supabase client: %v", err)
		}
	}
	return SupabaseClient
}

// SessionCookieName returns the cookie that carries the Supabase access token.
func SessionCookieName() string {
	if name := os.Getenv("SESSION_COOKIE_NAME"); name != "" {
		return name
	}
	return DefaultSessionCookieName
}
