package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"golang.org/x/sync/errgroup"

	"github.com/feichai0017/rag-tuner/internal/models"
)

// parseOptions 解析行为, 由 load 阶段的表单值驱动
type parseOptions struct {
	perPage    bool
	plainText  bool
	pages      map[int]bool // nil 表示全部页
	password   string
	stripSpace bool
}

// parseContent 按扩展名分发解析器
func parseContent(ctx context.Context, content []byte, fileType string, opts parseOptions) ([]models.ResultItem, error) {
	switch strings.ToLower(fileType) {
	case ".pdf":
		return parsePDF(ctx, content, opts)
	case ".docx", ".doc":
		return parseDOCX(content)
	case ".xlsx", ".xls":
		return parseXLSX(content)
	case ".md":
		return parseMarkdown(content)
	case ".html":
		return parseHTML(content)
	case ".txt", ".csv":
		return parsePlain(content, opts)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", fileType)
	}
}

func parsePDF(ctx context.Context, content []byte, opts parseOptions) ([]models.ResultItem, error) {
	reader := bytes.NewReader(content)
	pdfReader, err := pdf.NewReaderEncrypted(reader, reader.Size(), func() string {
		return opts.password
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	numPages := pdfReader.NumPage()

	// 整篇提取时不做分页
	if opts.plainText {
		r, err := pdfReader.GetPlainText()
		if err != nil {
			return nil, fmt.Errorf("failed to extract text: %w", err)
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(r); err != nil {
			return nil, err
		}
		return []models.ResultItem{{
			PageContent: buf.String(),
			Metadata:    map[string]interface{}{"page": 1, "total_pages": numPages},
		}}, nil
	}

	// 并行处理每一页
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	pageItems := make([]*models.ResultItem, numPages+1)

	for i := 1; i <= numPages; i++ {
		if opts.pages != nil && !opts.pages[i] {
			continue
		}
		pageNum := i
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			page := pdfReader.Page(pageNum)
			if page.V.IsNull() {
				return nil
			}
			text, err := page.GetPlainText(nil)
			if err != nil {
				return fmt.Errorf("failed to get text from page %d: %w", pageNum, err)
			}
			pageItems[pageNum] = &models.ResultItem{
				PageContent: text,
				Metadata: map[string]interface{}{
					"page":    pageNum,
					"section": fmt.Sprintf("page_%d", pageNum),
				},
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]models.ResultItem, 0, numPages)
	for _, it := range pageItems {
		if it == nil || strings.TrimSpace(it.PageContent) == "" {
			continue
		}
		items = append(items, *it)
	}

	// standard 模式合并为整篇, per_page 保留逐页条目
	if !opts.perPage {
		var buf strings.Builder
		for _, it := range items {
			buf.WriteString(it.PageContent)
			buf.WriteByte('\n')
		}
		return []models.ResultItem{{
			PageContent: buf.String(),
			Metadata:    map[string]interface{}{"page": 1, "total_pages": numPages},
		}}, nil
	}
	return items, nil
}

func parseDOCX(content []byte) ([]models.ResultItem, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to open docx: %w", err)
	}
	defer r.Close()

	doc := r.Editable()
	var items []models.ResultItem
	for i, p := range strings.Split(doc.GetContent(), "\n") {
		if strings.TrimSpace(p) == "" {
			continue
		}
		items = append(items, models.ResultItem{
			PageContent: p,
			Metadata:    map[string]interface{}{"page": 1, "paragraph": i + 1},
		})
	}
	return items, nil
}

func parseXLSX(content []byte) ([]models.ResultItem, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	var items []models.ResultItem
	for sheetNum, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		var sb strings.Builder
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
		if strings.TrimSpace(sb.String()) == "" {
			continue
		}
		items = append(items, models.ResultItem{
			PageContent: sb.String(),
			Metadata:    map[string]interface{}{"page": sheetNum + 1, "sheet": sheetName},
		})
	}
	return items, nil
}

// parseMarkdown 通过 goldmark AST 提取纯文本
func parseMarkdown(content []byte) ([]models.ResultItem, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	root := md.Parser().Parse(text.NewReader(content))

	var buf strings.Builder
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(content))
			if node.HardLineBreak() || node.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.Paragraph, *ast.Heading, *ast.ListItem:
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse markdown: %w", err)
	}

	return []models.ResultItem{{
		PageContent: strings.TrimSpace(buf.String()),
		Metadata:    map[string]interface{}{"page": 1},
	}}, nil
}

// parseHTML 粗粒度去标签
func parseHTML(content []byte) ([]models.ResultItem, error) {
	var buf strings.Builder
	inTag := false
	for _, r := range string(content) {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			buf.WriteByte(' ')
		case !inTag:
			buf.WriteRune(r)
		}
	}
	text := strings.Join(strings.Fields(buf.String()), " ")
	return []models.ResultItem{{
		PageContent: text,
		Metadata:    map[string]interface{}{"page": 1},
	}}, nil
}

func parsePlain(content []byte, opts parseOptions) ([]models.ResultItem, error) {
	text := string(content)
	if opts.stripSpace {
		text = strings.TrimSpace(text)
	}
	if text == "" {
		return nil, nil
	}
	return []models.ResultItem{{
		PageContent: text,
		Metadata:    map[string]interface{}{"page": 1},
	}}, nil
}

// parsePageRange 解析 "1-3,5" 形式的页码表达式, "all" 表示不过滤
func parsePageRange(expr string) (map[int]bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" || strings.EqualFold(expr, "all") {
		return nil, nil
	}
	pages := make(map[int]bool)
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var lo, hi int
		if strings.Contains(part, "-") {
			if _, err := fmt.Sscanf(part, "%d-%d", &lo, &hi); err != nil {
				return nil, fmt.Errorf("invalid page range %q", part)
			}
		} else {
			if _, err := fmt.Sscanf(part, "%d", &lo); err != nil {
				return nil, fmt.Errorf("invalid page number %q", part)
			}
			hi = lo
		}
		if lo < 1 || hi < lo {
			return nil, fmt.Errorf("invalid page range %q", part)
		}
		for p := lo; p <= hi; p++ {
			pages[p] = true
		}
	}
	if len(pages) == 0 {
		return nil, nil
	}
	return pages, nil
}
