package core

import (
	"bytes"
	"fmt"
	htmltmpl "html/template"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	appfs "github.com/trezcool/kia/fs"
)

const emailTemplatesDir = "assets/templates/email"

// emailTemplate is a parsed email template; either format may be missing.
type emailTemplate struct {
	text *texttmpl.Template
	html *htmltmpl.Template
}

type emailTemplates struct {
	mu              sync.RWMutex
	byName          map[string]emailTemplate
	appName         string
	frontendBaseURL string
}

var mailTemplates emailTemplates

type (
	EmailMessage struct {
		To      []mail.Address
		Subject string
		BodyStr string // plain text, bypasses templates

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	// ContextData is what email templates are executed with.
	ContextData struct {
		AppName         string
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// Render fills TextContent and HTMLContent from BodyStr or the named template.
func (m *EmailMessage) Render() error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	if m.TemplateName == "" {
		return nil
	}

	mailTemplates.mu.RLock()
	tmpl, ok := mailTemplates.byName[m.TemplateName]
	data := ContextData{
		AppName:         mailTemplates.appName,
		FrontendBaseURL: mailTemplates.frontendBaseURL,
		Data:            m.TemplateData,
	}
	mailTemplates.mu.RUnlock()
	if !ok {
		return errors.Errorf("unknown email template %q", m.TemplateName)
	}

	var buf bytes.Buffer
	if tmpl.text != nil && m.BodyStr == "" {
		if err := tmpl.text.Execute(&buf, data); err != nil {
			return errors.Wrapf(err, "%s.txt", m.TemplateName)
		}
		m.TextContent = buf.String()
		buf.Reset()
	}
	if tmpl.html != nil {
		if err := tmpl.html.Execute(&buf, data); err != nil {
			return errors.Wrapf(err, "%s.gohtml", m.TemplateName)
		}
		m.HTMLContent = buf.String()
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

// ParseEmailTemplates loads the email templates embedded in the binary.
// Every template is rendered inside its "_base" layout of the same extension.
func ParseEmailTemplates(conf *Config, logger Logger) {
	byName := make(map[string]emailTemplate)
	strict := conf.Debug || conf.TestMode

	entries, err := fs.ReadDir(appfs.FS, emailTemplatesDir)
	if err != nil {
		logger.Error(fmt.Sprintf("core.ParseEmailTemplates: %v", err), err)
		return
	}

	for _, e := range entries {
		fname := e.Name()
		ext := path.Ext(fname)
		if e.IsDir() || strings.HasPrefix(fname, "_") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		layout := path.Join(emailTemplatesDir, "_base"+ext)
		fp := path.Join(emailTemplatesDir, fname)

		tmpl := byName[name]
		switch ext {
		case ".txt":
			tmpl.text, err = texttmpl.ParseFS(appfs.FS, layout, fp)
			if err == nil && strict {
				tmpl.text = tmpl.text.Option("missingkey=error")
			}
		case ".gohtml":
			tmpl.html, err = htmltmpl.ParseFS(appfs.FS, layout, fp)
			if err == nil && strict {
				tmpl.html = tmpl.html.Option("missingkey=error")
			}
		default:
			continue
		}
		if err != nil {
			logger.Error(fmt.Sprintf("core.ParseEmailTemplates: %v", err), err)
			continue
		}
		byName[name] = tmpl
	}

	mailTemplates.mu.Lock()
	mailTemplates.byName = byName
	mailTemplates.appName = conf.AppName
	mailTemplates.frontendBaseURL = conf.FrontendBaseURL
	mailTemplates.mu.Unlock()
}
