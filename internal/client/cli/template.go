package cli

const usageTemplate = `
FitZone Client

Usage:
  fitzone [OPTIONS] COMMAND

Options:
  --version         Show version information
  --server URL      Server URL (default: http://localhost:8080)
  --ws URL          WebSocket URL for membership updates
  --db PATH         Path to credential database (default: fitzone-client.db)
  --cache PATH      Path to offline cache database (default: fitzone-cache.db)
  --idle-timeout D  Inactivity window before automatic logout (default: 5m)

Commands:
  register          Register new member account
  login             Login (email + password, then one-time code)
  verify [CODE]     Complete login with the emailed one-time code
  resend-otp        Request a fresh one-time code
  logout            Logout and delete the local session
  status            Show authentication status
  forgot-password   Request a password reset email
  reset-password    Set a new password using a reset token
  plans             List membership plans
  subscribe <plan>  Subscribe to a membership plan
  subscriptions     List your subscriptions
  cancel <id>       Cancel a subscription
  pay <plan>        Create a card payment for a plan
  dashboard         Interactive session with live membership updates

Examples:
  fitzone register
  fitzone login
  fitzone verify 123456
  fitzone plans
  fitzone subscribe 2
  fitzone --server https://fitzone.example.com dashboard
`

const plansListTemplate = `
=== Membership Plans ===

{{- if eq (len .) 0 }}
No plans available.
{{- else }}
{{- range . }}
- {{ .Name }} (#{{ .ID }}): ${{ printf "%.2f" .MonthlyPrice }}/month
   {{ .Description }}
   Group classes:       {{ .GroupClassesSessionsIncluded }} sessions/month
   Personal training:   {{ .PersonalTrainingIncluded }} sessions/month
   All locations:       {{ if .AccessToAllLocations }}yes{{ else }}no{{ end }}
   Specialized classes: {{ if .SpecializedClassesIncluded }}yes{{ else }}no{{ end }}

{{- end }}
Use 'fitzone subscribe <plan id>' to join a plan.
{{- end }}
`

const subscriptionsListTemplate = `
=== Your Subscriptions ===

{{- if eq (len .) 0 }}
No subscriptions found.

Use 'fitzone plans' to see available plans.
{{- else }}
{{- range . }}
- {{ .MembershipTypeName }} (subscription #{{ .SubscriptionID }})
   Status:  {{ .Status }}{{ if .IsActive }} (active){{ end }}
   Price:   ${{ printf "%.2f" .MonthlyPrice }}/month
   Since:   {{ .SubscriptionDate }}
   Expires: {{ .ExpirationDate }}

{{- end }}
{{- end }}
`
