// Package fixtures 提供文档分解样例。
package fixtures

import "github.com/BaSui01/docgraph/rag"

// AnnualReport 两页财报，带显式分块，无图片
func AnnualReport() rag.Decomposition {
	return rag.Decomposition{
		DocumentID: "annual-report",
		Pages: []rag.PageInput{
			{PageNumber: 1, Text: "Revenue grew 12 percent in fiscal 2023 driven by cloud services."},
			{PageNumber: 2, Text: "Operating costs fell as the company consolidated data centers."},
		},
		Chunks: []string{
			"Revenue grew 12 percent in fiscal 2023 driven by cloud services.",
			"Operating costs fell as the company consolidated data centers.",
		},
	}
}

// TwoPageReport 最小文档：doc-report + 2 页 + 2 块
func TwoPageReport() rag.Decomposition {
	return rag.Decomposition{
		DocumentID: "report",
		Pages: []rag.PageInput{
			{PageNumber: 1, Text: "p1"},
			{PageNumber: 2, Text: "p2"},
		},
		Chunks: []string{"first chunk", "second chunk"},
	}
}

// Graph 用 BuildGraph 构建样例的图
func Graph(doc rag.Decomposition) rag.Graph {
	return rag.BuildGraph(doc.DocumentID, doc.Pages, doc.Chunks, doc.Images)
}
