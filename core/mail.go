package core

import (
	"bytes"
	htmltmpl "html/template"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

const baseTemplate = "base"

var (
	templates   = make(tmplCache)
	templatesMu sync.RWMutex
	tmplContext ContextData
)

type (
	tmplCacheEntry map[string]interface{}    // {ext: *Template}
	tmplCache      map[string]tmplCacheEntry // {name: {tmplCacheEntry}}

	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

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

func (m *EmailMessage) getContextData() ContextData {
	ctx := tmplContext
	ctx.Data = m.TemplateData
	return ctx
}

func (m *EmailMessage) getTemplate(ext string) (interface{}, bool) {
	templatesMu.RLock()
	defer templatesMu.RUnlock()

	cache, ok := templates[m.TemplateName]
	if !ok {
		return nil, ok
	}
	tmplEntry, ok := cache[ext]
	return tmplEntry, ok
}

func (m *EmailMessage) renderText() error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	} else if m.TemplateName == "" {
		return nil
	}

	tmplEntry, ok := m.getTemplate(".txt")
	if !ok {
		return nil
	}
	tmpl, ok := tmplEntry.(*texttmpl.Template)
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buff, baseTemplate, m.getContextData()); err != nil {
		return err
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) renderHTML() error {
	if m.TemplateName == "" {
		return nil
	}

	tmplEntry, ok := m.getTemplate(".gohtml")
	if !ok {
		return nil
	}
	tmpl, ok := tmplEntry.(*htmltmpl.Template)
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buff, baseTemplate, m.getContextData()); err != nil {
		return err
	}
	m.HTMLContent = buff.String()
	return nil
}

func (m *EmailMessage) Render() error {
	if err := m.renderText(); err != nil {
		return err
	}
	return m.renderHTML()
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

// ParseEmailTemplates parses every `<name>.txt` and `<name>.gohtml` template found in `dir`, each one on top of
// the matching `_base` template.
func ParseEmailTemplates(fsys fs.FS, dir string, conf *Config, logger Logger) {
	templatesMu.Lock()
	defer templatesMu.Unlock()

	tmplContext = ContextData{AppName: conf.AppName, FrontendBaseURL: conf.FrontendBaseURL}

	fps, err := fs.Glob(fsys, path.Join(dir, "*"))
	if err != nil {
		logger.Error("parsing email templates", errors.Wrap(err, "globbing templates"))
		return
	}

	for _, fp := range fps {
		fname := path.Base(fp)
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		entry, ok := templates[name]
		if !ok {
			entry = make(tmplCacheEntry)
			templates[name] = entry
		}

		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFS(fsys, path.Join(dir, "_base.txt"), fp)
			if err != nil {
				logger.Error("parsing email templates", errors.Wrapf(err, "parsing %s", fp))
				continue
			}
			if conf.Debug || conf.TestMode {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry[ext] = tmpl
		} else {
			tmpl, err := htmltmpl.ParseFS(fsys, path.Join(dir, "_base.gohtml"), fp)
			if err != nil {
				logger.Error("parsing email templates", errors.Wrapf(err, "parsing %s", fp))
				continue
			}
			if conf.Debug || conf.TestMode {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry[ext] = tmpl
		}
	}
}
