package printer

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

var (
	startXrefPattern = regexp.MustCompile(`startxref\s+(\d+)\s+%%EOF\s*$`)
	sizePattern      = regexp.MustCompile(`/Size (\d+)`)
	rootPattern      = regexp.MustCompile(`/Root (\d+) 0 R`)
	infoPattern      = regexp.MustCompile(`/Info (\d+) 0 R`)
	metadataPattern  = regexp.MustCompile(`\n(\d+) 0 obj\n<< /Type /Metadata /Subtype /XML`)
)

// conform appends an incremental update to doc that links the metadata stream and an sRGB output intent from the
// document catalog, marks the document as tagged with a structure tree rooted at a Document element, and gives the
// trailer a file identifier.
func conform(doc, icc []byte) ([]byte, error) {
	m := startXrefPattern.FindSubmatch(doc)
	if m == nil {
		return nil, errors.New("document has no cross reference")
	}
	prev := string(m[1])

	trailer := doc[bytes.LastIndex(doc, []byte("trailer")):]
	size, err := submatchInt(sizePattern, trailer)
	if err != nil {
		return nil, err
	}

	root, err := submatchInt(rootPattern, trailer)
	if err != nil {
		return nil, err
	}

	info, err := submatchInt(infoPattern, trailer)
	if err != nil {
		return nil, err
	}

	catalogPattern := regexp.MustCompile(fmt.Sprintf(`(?s)\n%d 0 obj\n<<\n(.*?)\n>>\nendobj`, root))
	cm := catalogPattern.FindSubmatch(doc)
	if cm == nil {
		return nil, errors.New("document has no catalog", j.MKV{"root": root})
	}

	sum := md5.Sum(doc)
	id := hex.EncodeToString(sum[:])

	var buf bytes.Buffer
	buf.Write(doc)
	if !bytes.HasSuffix(doc, []byte("\n")) {
		buf.WriteByte('\n')
	}

	profile, intent, structRoot, document := size, size+1, size+2, size+3
	offsets := make(map[int]int)

	offsets[profile] = buf.Len()
	fmt.Fprintf(&buf, "%d 0 obj\n<< /N 3 /Length %d >>\nstream\n", profile, len(icc))
	buf.Write(icc)
	buf.WriteString("\nendstream\nendobj\n")

	offsets[intent] = buf.Len()
	fmt.Fprintf(&buf, "%d 0 obj\n<< /Type /OutputIntent /S /GTS_PDFA1 /OutputConditionIdentifier (%s) "+
		"/Info (%s) /DestOutputProfile %d 0 R >>\nendobj\n", intent, outputCondition, outputCondition, profile)

	offsets[structRoot] = buf.Len()
	fmt.Fprintf(&buf, "%d 0 obj\n<< /Type /StructTreeRoot /K [%d 0 R] >>\nendobj\n", structRoot, document)

	offsets[document] = buf.Len()
	fmt.Fprintf(&buf, "%d 0 obj\n<< /Type /StructElem /S /Document /P %d 0 R /T (%s) >>\nendobj\n",
		document, structRoot, DocumentTitle)

	offsets[root] = buf.Len()
	fmt.Fprintf(&buf, "%d 0 obj\n<<\n%s\n", root, cm[1])
	if mm := metadataPattern.FindSubmatch(doc); mm != nil {
		fmt.Fprintf(&buf, "/Metadata %s 0 R\n", mm[1])
	}
	fmt.Fprintf(&buf, "/MarkInfo << /Marked true >>\n/StructTreeRoot %d 0 R\n/Lang (fr-FR)\n", structRoot)
	fmt.Fprintf(&buf, "/OutputIntents [%d 0 R]\n>>\nendobj\n", intent)

	xref := buf.Len()
	buf.WriteString("xref\n")
	fmt.Fprintf(&buf, "%d 1\n%010d 00000 n \n", root, offsets[root])
	fmt.Fprintf(&buf, "%d 4\n", profile)
	for _, obj := range []int{profile, intent, structRoot, document} {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[obj])
	}
	fmt.Fprintf(&buf, "trailer\n<<\n/Size %d\n/Root %d 0 R\n/Info %d 0 R\n/Prev %s\n/ID [<%s> <%s>]\n>>\n",
		document+1, root, info, prev, id, id)
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xref)

	return buf.Bytes(), nil
}

func submatchInt(re *regexp.Regexp, b []byte) (int, error) {
	m := re.FindSubmatch(b)
	if m == nil {
		return 0, errors.New("trailer entry missing", j.MKV{"pattern": re.String()})
	}

	return strconv.Atoi(string(m[1]))
}
