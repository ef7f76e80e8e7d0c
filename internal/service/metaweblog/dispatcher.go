// Package metaweblog maps MetaWeblog and Blogger API calls onto the publish
// service.
package metaweblog

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/librenews/weblog-bridge/internal/fault"
	"github.com/librenews/weblog-bridge/internal/model/account"
	"github.com/librenews/weblog-bridge/internal/model/lexicon"
	"github.com/librenews/weblog-bridge/internal/model/post"
	"github.com/librenews/weblog-bridge/internal/service/atproto"
	"github.com/librenews/weblog-bridge/internal/service/compose"
	"github.com/librenews/weblog-bridge/internal/xmlrpc"
)

// Publisher is the part of the publish service the dispatcher drives.
type Publisher interface {
	Publish(ctx context.Context, creds account.Credentials, p post.Post) (post.Address, error)
	GetPost(ctx context.Context, creds account.Credentials, postID string) (post.Entry, error)
}

// Blog describes the single blog every account exposes.
type Blog struct {
	ID         string
	Name       string
	URL        string
	ServiceURL string
}

// DefaultBlog matches what editors were shown before configuration existed.
func DefaultBlog() Blog {
	return Blog{ID: "1", Name: "Bluesky Blog", URL: "https://bsky.social", ServiceURL: "https://bsky.social"}
}

type handlerFunc func(ctx context.Context, params xmlrpc.Params) (any, error)

// Dispatcher routes method names to handlers.
type Dispatcher struct {
	publisher Publisher
	blog      Blog
	handlers  map[string]handlerFunc
}

// New builds a dispatcher around publisher.
func New(publisher Publisher, blog Blog) *Dispatcher {
	if blog.ID == "" {
		blog.ID = "1"
	}
	d := &Dispatcher{publisher: publisher, blog: blog}
	d.handlers = map[string]handlerFunc{
		"metaWeblog.newPost":        d.newPost,
		"blogger.newPost":           d.bloggerNewPost,
		"metaWeblog.getPost":        d.getPost,
		"metaWeblog.editPost":       unsupported("Post editing is not supported: records cannot be edited in place"),
		"metaWeblog.getRecentPosts": unsupported("Getting recent posts is not supported"),
		"blogger.deletePost":        unsupported("Post deletion is not supported"),
		"blogger.getUsersBlogs":     d.getUsersBlogs,
		"metaWeblog.getUsersBlogs":  d.getUsersBlogs,
		"blogger.getUserInfo":       d.getUserInfo,
		"metaWeblog.getCategories":  d.getCategories,
		"mt.supportedMethods":       d.supportedMethods,
	}
	return d
}

// HandleCall runs one method. Unknown names fail with a MethodNotFound fault.
func (d *Dispatcher) HandleCall(ctx context.Context, method string, params xmlrpc.Params) (any, error) {
	h, ok := d.handlers[method]
	if !ok {
		return nil, fault.MethodNotFound(method)
	}
	return h(ctx, params)
}

// Methods lists the recognized method names, sorted.
func (d *Dispatcher) Methods() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func unsupported(msg string) handlerFunc {
	return func(context.Context, xmlrpc.Params) (any, error) {
		return nil, fault.NotSupported("%s", msg)
	}
}

// newPost: blogid, username, password, struct, publish.
func (d *Dispatcher) newPost(ctx context.Context, params xmlrpc.Params) (any, error) {
	creds := account.Credentials{Identifier: strings.TrimSpace(params.String(1)), Password: params.String(2)}
	if !creds.Complete() {
		return nil, fault.Validation("Handle and app password are required")
	}
	content := params.Struct(3)
	if content == nil {
		return nil, fault.Validation("Post content struct is required")
	}

	addr, err := d.publisher.Publish(ctx, creds, postFromStruct(content))
	if err != nil {
		return nil, err
	}
	return addr.URI, nil
}

// bloggerNewPost accepts both the Blogger form (appkey, blogid, username,
// password, content string, publish) and the MetaWeblog form some editors
// send under this name.
func (d *Dispatcher) bloggerNewPost(ctx context.Context, params xmlrpc.Params) (any, error) {
	if params.Struct(3) != nil {
		return d.newPost(ctx, params)
	}

	creds := account.Credentials{Identifier: strings.TrimSpace(params.String(2)), Password: params.String(3)}
	if !creds.Complete() {
		return nil, fault.Validation("Handle and app password are required")
	}
	title, body := splitBloggerContent(params.String(4))
	addr, err := d.publisher.Publish(ctx, creds, post.Post{Title: title, Body: body})
	if err != nil {
		return nil, err
	}
	return addr.URI, nil
}

// getPost: postid, username, password.
func (d *Dispatcher) getPost(ctx context.Context, params xmlrpc.Params) (any, error) {
	creds := account.Credentials{Identifier: strings.TrimSpace(params.String(1)), Password: params.String(2)}
	entry, err := d.publisher.GetPost(ctx, creds, strings.TrimSpace(params.String(0)))
	if err != nil {
		return nil, err
	}
	return postStruct(entry), nil
}

func (d *Dispatcher) getUsersBlogs(context.Context, xmlrpc.Params) (any, error) {
	return []any{
		map[string]any{
			"blogid":   d.blog.ID,
			"blogName": d.blog.Name,
			"url":      d.blog.URL,
		},
	}, nil
}

// getUserInfo: (appkey, username, password) or (username, password).
func (d *Dispatcher) getUserInfo(_ context.Context, params xmlrpc.Params) (any, error) {
	handle := params.String(0)
	if len(params) >= 3 {
		handle = params.String(1)
	}
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, fault.Validation("Handle is required")
	}

	p := account.ProfileFor(handle, d.blog.ServiceURL)
	return map[string]any{
		"userid":    p.UserID,
		"nickname":  p.Nickname,
		"email":     p.Email,
		"firstname": p.FirstName,
		"lastname":  p.LastName,
		"url":       p.URL,
	}, nil
}

// getCategories offers the schema short names so editors can tag a post
// with its target schema.
func (d *Dispatcher) getCategories(context.Context, xmlrpc.Params) (any, error) {
	schemas := lexicon.Schemas()
	out := make([]any, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, map[string]any{
			"categoryId":   s.Name,
			"categoryName": s.Name,
			"title":        s.Name,
			"description":  s.Description,
			"htmlUrl":      "",
			"rssUrl":       "",
		})
	}
	return out, nil
}

func (d *Dispatcher) supportedMethods(context.Context, xmlrpc.Params) (any, error) {
	return d.Methods(), nil
}

// postFromStruct reads the MetaWeblog content struct.
func postFromStruct(st map[string]any) post.Post {
	p := post.Post{
		Title:    xmlrpc.AsString(st["title"]),
		Body:     xmlrpc.AsString(st["description"]),
		Tags:     xmlrpc.AsStrings(st["categories"]),
		Excerpt:  strings.TrimSpace(xmlrpc.AsString(st["mt_excerpt"])),
		Keywords: strings.TrimSpace(xmlrpc.AsString(st["mt_keywords"])),
	}
	if more := xmlrpc.AsString(st["mt_text_more"]); strings.TrimSpace(more) != "" {
		if strings.TrimSpace(p.Body) == "" {
			p.Body = more
		} else {
			p.Body += post.TitleSeparator + more
		}
	}

	p.SchemaHint = strings.TrimSpace(xmlrpc.AsString(st["lexicon"]))
	if p.SchemaHint == "" {
		p.SchemaHint = customField(st["custom_fields"], "lexicon")
	}

	switch created := st["dateCreated"].(type) {
	case time.Time:
		p.CreatedAt = created
	case string:
		if t, err := xmlrpc.ParseTime(created); err == nil {
			p.CreatedAt = t
		}
	}
	return p
}

// customField finds key in a WordPress-style custom_fields array.
func customField(v any, key string) string {
	fields, ok := v.([]any)
	if !ok {
		return ""
	}
	for _, f := range fields {
		m, ok := f.(map[string]any)
		if !ok {
			continue
		}
		if strings.EqualFold(xmlrpc.AsString(m["key"]), key) {
			return strings.TrimSpace(xmlrpc.AsString(m["value"]))
		}
	}
	return ""
}

// splitBloggerContent extracts an optional <title>...</title> prefix.
func splitBloggerContent(content string) (title, body string) {
	const openTag, closeTag = "<title>", "</title>"
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, openTag) {
		return "", content
	}
	end := strings.Index(trimmed, closeTag)
	if end < 0 {
		return "", content
	}
	return strings.TrimSpace(trimmed[len(openTag):end]), strings.TrimSpace(trimmed[end+len(closeTag):])
}

// postStruct renders a stored record as a MetaWeblog post struct.
func postStruct(entry post.Entry) map[string]any {
	title := strings.TrimSpace(entry.Value.Title)
	if title == "" {
		title = compose.UntitledTitle
	}

	link := ""
	if uri, err := atproto.ParseURI(entry.URI); err == nil {
		link = atproto.WebURL(uri)
	}

	out := map[string]any{
		"postid":      entry.URI,
		"title":       title,
		"description": entry.Value.Body(),
		"categories":  []string{categoryFor(entry.Collection)},
		"link":        link,
		"permaLink":   link,
		"userid":      entry.Repo,
	}
	if entry.Value.Subtitle != "" {
		out["mt_excerpt"] = entry.Value.Subtitle
	}
	if created, err := time.Parse(time.RFC3339Nano, entry.Value.CreatedAt); err == nil {
		out["dateCreated"] = created.UTC()
	} else if entry.Value.CreatedAt != "" {
		out["dateCreated"] = entry.Value.CreatedAt
	}
	return out
}

// categoryFor names the first schema that maps to collection.
func categoryFor(collection string) string {
	for _, s := range lexicon.Schemas() {
		if s.Collection == collection {
			return s.Name
		}
	}
	return collection
}
