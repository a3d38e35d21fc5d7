/*
The multipart package describes a structured multipart/form-data body and encodes
it lazily. Encoding produces the content-type header (carrying the boundary) up
front and a reader that emits the encoded parts as they are consumed, so large
file parts never need to be buffered in full.
*/
package multipart

import (
	"bytes"
	"fmt"
	"io"
	mime "mime/multipart"
	"net/textproto"
	"strings"
)

// Field is a simple key/value form field.
type Field struct {
	Name  string
	Value string
}

// File is a file-upload part. Reader is consumed lazily when set; otherwise
// Data is used.
type File struct {
	FieldName   string
	FileName    string
	ContentType string
	Data        []byte
	Reader      io.Reader
}

// Form is the structured multipart value callers attach as a request body.
// Fields and files are encoded in the order given.
type Form struct {
	Fields []Field
	Files  []File
}

// Encode returns the content-type header value for the form and a reader over
// the encoded body. The body is produced as the reader is drained; a part that
// fails to encode surfaces as a read error. Callers that stop reading early
// must close the reader, otherwise the encoding goroutine stays blocked on the
// pipe forever.
func (f *Form) Encode() (string, io.ReadCloser) {
	pipeReader, pipeWriter := io.Pipe()
	writer := mime.NewWriter(pipeWriter)

	go func() {
		pipeWriter.CloseWithError(f.write(writer))
	}()

	return writer.FormDataContentType(), pipeReader
}

func (f *Form) write(writer *mime.Writer) error {
	for _, field := range f.Fields {
		if err := writer.WriteField(field.Name, field.Value); err != nil {
			return fmt.Errorf("failed to encode form field %s: %w", field.Name, err)
		}
	}

	for _, file := range f.Files {
		part, err := f.createPart(writer, file)
		if err != nil {
			return fmt.Errorf("failed to encode file part %s: %w", file.FieldName, err)
		}

		content := file.Reader
		if content == nil {
			content = bytes.NewReader(file.Data)
		}

		if _, err := io.Copy(part, content); err != nil {
			return fmt.Errorf("failed to copy file part %s: %w", file.FieldName, err)
		}
	}

	return writer.Close()
}

func (f *Form) createPart(writer *mime.Writer, file File) (io.Writer, error) {
	if file.ContentType == "" {
		return writer.CreateFormFile(file.FieldName, file.FileName)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(file.FieldName), escapeQuotes(file.FileName)))
	header.Set("Content-Type", file.ContentType)
	return writer.CreatePart(header)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
