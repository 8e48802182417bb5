package helpers

import (
	"io"
	"testing"

	tele "gopkg.in/telebot.v4"
)

type recordingContext struct {
	tele.Context
	msg     *tele.Message
	sent    []any
	opts    []any
	deleted int
	editFn  func(what any) error
}

func (r *recordingContext) Message() *tele.Message { return r.msg }

func (r *recordingContext) Delete() error {
	r.deleted++
	return nil
}

func (r *recordingContext) Send(what any, opts ...any) error {
	r.sent = append(r.sent, what)
	r.opts = append(r.opts, opts...)
	return nil
}

func (r *recordingContext) EditOrSend(what any, opts ...any) error {
	r.opts = append(r.opts, opts...)
	return r.editFn(what)
}

func TestSendPhotoRebuildsReader(t *testing.T) {
	SetDispatcher(nil)
	c := &recordingContext{}
	png := []byte{0x89, 'P', 'N', 'G'}
	markup := &tele.ReplyMarkup{}

	for i := 0; i < 2; i++ {
		if err := SendPhoto(c, png, "Acme: Revenue", markup); err != nil {
			t.Fatalf("SendPhoto: %v", err)
		}
	}
	if len(c.sent) != 2 {
		t.Fatalf("sent = %d", len(c.sent))
	}
	for _, v := range c.sent {
		photo, ok := v.(*tele.Photo)
		if !ok {
			t.Fatalf("sent %T, want *tele.Photo", v)
		}
		body, err := io.ReadAll(photo.File.FileReader)
		if err != nil || string(body) != string(png) {
			t.Fatalf("photo body = %q, %v", body, err)
		}
		if photo.Caption != "Acme: Revenue" {
			t.Fatalf("caption = %q", photo.Caption)
		}
	}
	if opts, ok := c.opts[0].(*tele.SendOptions); !ok || opts.ReplyMarkup != markup {
		t.Fatalf("markup not forwarded: %#v", c.opts[0])
	}
}

func TestEditOrSendIgnoresUnchangedMessage(t *testing.T) {
	SetDispatcher(nil)
	c := &recordingContext{editFn: func(any) error { return tele.ErrSameMessageContent }}
	if err := EditOrSend(c, "Choose a company:"); err != nil {
		t.Fatalf("EditOrSend: %v", err)
	}
}

func TestEditOrSendReplacesPhoto(t *testing.T) {
	SetDispatcher(nil)
	c := &recordingContext{
		msg:    &tele.Message{Photo: &tele.Photo{}},
		editFn: func(any) error { t.Fatal("photo messages must not be edited"); return nil },
	}
	if err := EditOrSend(c, "Choose a data type:"); err != nil {
		t.Fatalf("EditOrSend: %v", err)
	}
	if c.deleted != 1 || len(c.sent) != 1 || c.sent[0] != "Choose a data type:" {
		t.Fatalf("deleted=%d sent=%v", c.deleted, c.sent)
	}
}
