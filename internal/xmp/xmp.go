// Package xmp builds the metadata packet embedded into archival documents.
package xmp

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"text/template"
	"time"

	"github.com/luno/jettison/errors"
)

// Packet holds the fields written into the metadata packet. Missive is stored verbatim (escaped) under the
// sepamail_missive property. The missive properties are left out when Missive is empty.
type Packet struct {
	Title       string
	Author      string
	Publisher   string
	CreatorTool string
	Producer    string
	CreatedAt   time.Time

	// Part and Conformance declare the archival conformance level, e.g. 1 and "A".
	Part        int
	Conformance string

	Missive   string
	Signed    bool
	Generator string
}

var packetTemplate = template.Must(template.New("xmp").Funcs(template.FuncMap{
	"x": escape,
}).Parse(`<?xpacket begin="` + "\uFEFF" + `" id="W5M0MpCehiHzreSzNTczkc9d"?>
<x:xmpmeta xmlns:x="adobe:ns:meta/">
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
<rdf:Description rdf:about="" xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:format>application/pdf</dc:format>
<dc:title><rdf:Alt><rdf:li xml:lang="x-default">{{x .Title}}</rdf:li></rdf:Alt></dc:title>
<dc:creator><rdf:Seq><rdf:li>{{x .Author}}</rdf:li></rdf:Seq></dc:creator>
<dc:publisher><rdf:Bag><rdf:li>{{x .Publisher}}</rdf:li></rdf:Bag></dc:publisher>
</rdf:Description>
<rdf:Description rdf:about="" xmlns:xmp="http://ns.adobe.com/xap/1.0/">
<xmp:CreatorTool>{{x .CreatorTool}}</xmp:CreatorTool>
<xmp:CreateDate>{{.Created}}</xmp:CreateDate>
<xmp:ModifyDate>{{.Created}}</xmp:ModifyDate>
{{- if .Missive}}
<xmp:sepamail_missive>{{x .Missive}}</xmp:sepamail_missive>
<xmp:sepamail_document.signed>{{.Signed}}</xmp:sepamail_document.signed>
<xmp:sepamail_document.generator>{{x .Generator}}</xmp:sepamail_document.generator>
{{- end}}
</rdf:Description>
<rdf:Description rdf:about="" xmlns:pdf="http://ns.adobe.com/pdf/1.3/">
<pdf:Producer>{{x .Producer}}</pdf:Producer>
</rdf:Description>
<rdf:Description rdf:about="" xmlns:pdfaid="http://www.aiim.org/pdfa/ns/id/">
<pdfaid:part>{{.Part}}</pdfaid:part>
<pdfaid:conformance>{{x .Conformance}}</pdfaid:conformance>
</rdf:Description>
</rdf:RDF>
</x:xmpmeta>
<?xpacket end="w"?>`))

func escape(s string) (string, error) {
	var buf bytes.Buffer
	err := xml.EscapeText(&buf, []byte(s))
	if err != nil {
		return "", err
	}

	return buf.String(), nil
}

// Marshal renders the packet.
func (p Packet) Marshal() ([]byte, error) {
	if p.Part == 0 {
		p.Part = 1
	}

	data := struct {
		Packet
		Created string
		Signed  string
	}{
		Packet:  p,
		Created: p.CreatedAt.UTC().Format(time.RFC3339),
		Signed:  strconv.FormatBool(p.Signed),
	}

	var buf bytes.Buffer
	err := packetTemplate.Execute(&buf, data)
	if err != nil {
		return nil, errors.Wrap(err, "render xmp packet")
	}

	return buf.Bytes(), nil
}

// Property returns the unescaped text of the first element named name in packet, for example
// "xmp:sepamail_missive".
func Property(packet []byte, name string) (string, bool) {
	dec := xml.NewDecoder(bytes.NewReader(packet))
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", false
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		if qualified(start.Name) != name {
			continue
		}

		var text string
		err = dec.DecodeElement(&text, &start)
		if err != nil {
			return "", false
		}

		return text, true
	}
}

var prefixes = map[string]string{
	"http://purl.org/dc/elements/1.1/":            "dc",
	"http://ns.adobe.com/xap/1.0/":                "xmp",
	"http://ns.adobe.com/pdf/1.3/":                "pdf",
	"http://www.aiim.org/pdfa/ns/id/":             "pdfaid",
	"http://www.w3.org/1999/02/22-rdf-syntax-ns#": "rdf",
}

func qualified(n xml.Name) string {
	prefix, ok := prefixes[n.Space]
	if !ok {
		return n.Local
	}

	return prefix + ":" + n.Local
}
