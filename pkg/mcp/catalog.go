// Copyright 2025 Arada AI
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mcp

import "os"

// CredentialSpec describes one credential a server template needs,
// forwarded to the server as an HTTP header rather than stored verbatim.
type CredentialSpec struct {
	Name        string
	Description string
	Sensitive   bool
	HeaderName  string
}

// ServerTemplate is a built-in, named MCP server kind (e.g. "google-calendar")
// that `add_server` can instantiate with user-supplied credentials, letting
// `mcp:<template>:<tool>` tool names resolve without the caller knowing the
// server's instance id.
type ServerTemplate struct {
	ID                  string
	Name                string
	URLTemplate         string
	AuthType            string // "oauth_token" | "api_token" | "none"
	TokenGuideURL       string
	Scopes              []string
	CredentialsRequired []CredentialSpec
	CredentialsOptional []CredentialSpec
	Tools               []string
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func googleRefreshTokenSpec() CredentialSpec {
	return CredentialSpec{
		Name:        "GOOGLE_REFRESH_TOKEN",
		Description: "OAuth refresh token from OAuth Playground",
		Sensitive:   true,
		HeaderName:  "X-Google-Refresh-Token",
	}
}

func microsoftRefreshTokenSpec() CredentialSpec {
	return CredentialSpec{
		Name:        "MICROSOFT_REFRESH_TOKEN",
		Description: "OAuth refresh token from Graph Explorer or Azure AD",
		Sensitive:   true,
		HeaderName:  "X-Microsoft-Refresh-Token",
	}
}

// Catalog is the built-in set of MCP server templates, keyed by template id.
var Catalog = map[string]ServerTemplate{
	"google-calendar": {
		ID:                  "google-calendar",
		Name:                "Google Calendar",
		URLTemplate:         envOr("MCP_GOOGLE_CALENDAR_URL", "http://localhost:8001/mcp"),
		AuthType:            "oauth_token",
		TokenGuideURL:       "https://developers.google.com/oauthplayground/",
		Scopes:              []string{"https://www.googleapis.com/auth/calendar"},
		CredentialsRequired: []CredentialSpec{googleRefreshTokenSpec()},
		CredentialsOptional: []CredentialSpec{
			{Name: "GOOGLE_CLIENT_ID", Description: "Custom OAuth app client ID", HeaderName: "X-Google-Client-Id"},
			{Name: "GOOGLE_CLIENT_SECRET", Description: "Custom OAuth app client secret", Sensitive: true, HeaderName: "X-Google-Client-Secret"},
		},
		Tools: []string{"list_events", "create_event", "update_event", "delete_event"},
	},
	"gmail": {
		ID:            "gmail",
		Name:          "Gmail",
		URLTemplate:   envOr("MCP_GOOGLE_GMAIL_URL", "http://localhost:8002/mcp"),
		AuthType:      "oauth_token",
		TokenGuideURL: "https://developers.google.com/oauthplayground/",
		Scopes: []string{
			"https://www.googleapis.com/auth/gmail.modify",
			"https://www.googleapis.com/auth/gmail.send",
		},
		CredentialsRequired: []CredentialSpec{googleRefreshTokenSpec()},
		Tools:               []string{"list_emails", "send_email", "search_emails", "get_email"},
	},
	"google-drive": {
		ID:                  "google-drive",
		Name:                "Google Drive",
		URLTemplate:         envOr("MCP_GOOGLE_DRIVE_URL", "http://localhost:8003/mcp"),
		AuthType:            "oauth_token",
		TokenGuideURL:       "https://developers.google.com/oauthplayground/",
		Scopes:              []string{"https://www.googleapis.com/auth/drive"},
		CredentialsRequired: []CredentialSpec{googleRefreshTokenSpec()},
		Tools:               []string{"list_files", "upload_file", "download_file", "search_files"},
	},
	"outlook-calendar": {
		ID:                  "outlook-calendar",
		Name:                "Outlook Calendar",
		URLTemplate:         envOr("MCP_OUTLOOK_CALENDAR_URL", "http://localhost:8004/mcp"),
		AuthType:            "oauth_token",
		TokenGuideURL:       "https://developer.microsoft.com/en-us/graph/graph-explorer",
		Scopes:              []string{"Calendars.ReadWrite", "offline_access"},
		CredentialsRequired: []CredentialSpec{microsoftRefreshTokenSpec()},
		CredentialsOptional: []CredentialSpec{
			{Name: "MICROSOFT_CLIENT_ID", Description: "Azure AD app client ID", HeaderName: "X-Microsoft-Client-Id"},
			{Name: "MICROSOFT_CLIENT_SECRET", Description: "Azure AD app client secret", Sensitive: true, HeaderName: "X-Microsoft-Client-Secret"},
			{Name: "MICROSOFT_TENANT_ID", Description: "Azure AD tenant ID", HeaderName: "X-Microsoft-Tenant-Id"},
		},
		Tools: []string{"list_events", "create_event", "update_event", "delete_event"},
	},
	"outlook-email": {
		ID:                  "outlook-email",
		Name:                "Outlook Email",
		URLTemplate:         envOr("MCP_OUTLOOK_EMAIL_URL", "http://localhost:8005/mcp"),
		AuthType:            "oauth_token",
		TokenGuideURL:       "https://developer.microsoft.com/en-us/graph/graph-explorer",
		Scopes:              []string{"Mail.ReadWrite", "Mail.Send", "offline_access"},
		CredentialsRequired: []CredentialSpec{microsoftRefreshTokenSpec()},
		CredentialsOptional: []CredentialSpec{
			{Name: "MICROSOFT_CLIENT_ID", Description: "Azure AD app client ID", HeaderName: "X-Microsoft-Client-Id"},
			{Name: "MICROSOFT_CLIENT_SECRET", Description: "Azure AD app client secret", Sensitive: true, HeaderName: "X-Microsoft-Client-Secret"},
			{Name: "MICROSOFT_TENANT_ID", Description: "Azure AD tenant ID", HeaderName: "X-Microsoft-Tenant-Id"},
		},
		Tools: []string{"list_emails", "get_email", "send_email", "search_emails"},
	},
	"sharepoint": {
		ID:            "sharepoint",
		Name:          "SharePoint",
		URLTemplate:   envOr("MCP_SHAREPOINT_URL", "http://localhost:8006/mcp"),
		AuthType:      "oauth_token",
		TokenGuideURL: "https://developer.microsoft.com/en-us/graph/graph-explorer",
		Scopes:        []string{"Sites.ReadWrite.All", "Files.ReadWrite.All", "offline_access"},
		CredentialsRequired: []CredentialSpec{
			microsoftRefreshTokenSpec(),
			{Name: "SHAREPOINT_SITE_URL", Description: "SharePoint site URL (e.g., contoso.sharepoint.com)", HeaderName: "X-SharePoint-Site-Url"},
		},
		Tools: []string{"list_sites", "list_files", "upload_file", "download_file"},
	},
	"onedrive": {
		ID:                  "onedrive",
		Name:                "OneDrive",
		URLTemplate:         envOr("MCP_ONEDRIVE_URL", "http://localhost:8007/mcp"),
		AuthType:            "oauth_token",
		TokenGuideURL:       "https://developer.microsoft.com/en-us/graph/graph-explorer",
		Scopes:              []string{"Files.ReadWrite.All", "offline_access"},
		CredentialsRequired: []CredentialSpec{microsoftRefreshTokenSpec()},
		Tools:               []string{"list_files", "upload_file", "download_file", "search_files"},
	},
	"slack": {
		ID:            "slack",
		Name:          "Slack",
		URLTemplate:   envOr("MCP_SLACK_URL", "http://localhost:8008/mcp"),
		AuthType:      "api_token",
		TokenGuideURL: "https://api.slack.com/apps",
		CredentialsRequired: []CredentialSpec{
			{Name: "SLACK_BOT_TOKEN", Description: "Bot User OAuth Token (xoxb-...)", Sensitive: true, HeaderName: "X-Slack-Bot-Token"},
		},
		CredentialsOptional: []CredentialSpec{
			{Name: "SLACK_TEAM_ID", Description: "Workspace team ID", HeaderName: "X-Slack-Team-Id"},
		},
		Tools: []string{"send_message", "list_channels", "search_messages"},
	},
	"filesystem": {
		ID:          "filesystem",
		Name:        "Filesystem",
		URLTemplate: envOr("MCP_FILESYSTEM_URL", "http://localhost:8009/mcp"),
		AuthType:    "none",
		CredentialsRequired: []CredentialSpec{
			{Name: "ALLOWED_PATHS", Description: "Comma-separated list of allowed directories", HeaderName: "X-Allowed-Paths"},
		},
		Tools: []string{"read_file", "write_file", "list_directory"},
	},
}

// GetTemplate looks up one built-in template by id.
func GetTemplate(id string) (ServerTemplate, bool) {
	t, ok := Catalog[id]
	return t, ok
}

// ListTemplates returns every built-in template.
func ListTemplates() []ServerTemplate {
	out := make([]ServerTemplate, 0, len(Catalog))
	for _, t := range Catalog {
		out = append(out, t)
	}
	return out
}

// HeadersFor builds the credential headers a template's server expects,
// given a map of credential name -> value (e.g. from a secret store).
func HeadersFor(t ServerTemplate, credentials map[string]string) map[string]string {
	headers := make(map[string]string)
	for _, spec := range append(append([]CredentialSpec{}, t.CredentialsRequired...), t.CredentialsOptional...) {
		if v, ok := credentials[spec.Name]; ok && v != "" {
			headers[spec.HeaderName] = v
		}
	}
	return headers
}
