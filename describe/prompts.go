package describe

// systemPrompt frames the model as a data catalog editor.
const systemPrompt = `You write entries for a public data service catalog from Swagger/OpenAPI documents.
Be thorough and concrete: cover technical aspects and use cases.

Always respond with a single valid JSON object. Do not include any text outside the JSON object.`

// userPromptTemplate is rendered with text/template from promptData.
const userPromptTemplate = `Based on this API information:

Title: {{.Title}}
Description: {{.Description}}
Version: {{.Version}}

Method Summary: {{.MethodSummary}}

Endpoint Short Descriptions:
{{- range .Operations}}
{{.Method}} {{.Path}}: {{.Summary}}
{{- else}}
No endpoint details available.
{{- end}}
{{- if .MoreOperations}}
... and {{.MoreOperations}} more endpoints
{{- end}}

Additional Information from Landing Page{{if .LandingPageURL}} ({{.LandingPageURL}}){{end}}:
{{if .LandingPageContent}}{{.LandingPageContent}}{{else}}No additional information available.{{end}}

Create a catalog entry with:
1. A clear title (max 10 words).
2. A detailed description (at least 50 words) covering the purpose of the API, the resources it
   exposes, the operations it allows, who would use it and for what, and notable technical or
   domain-specific features.
3. Five specific keywords describing the domain and functionality.
4. Between 1 and 3 theme codes from this list:
{{- range .Themes}}
   {{.Code}}={{.DE}} ({{.EN}})
{{- end}}

Respond with JSON only:
{"title":"...","description":"...","keywords":["...","...","...","...","..."],"theme_codes":["..."]}`
