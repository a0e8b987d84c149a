package util

import "errors"

var (
	ErrNoExtractableText = errors.New("no extractable text found in PDF")

	ErrFolderNotFound = errors.New("folder not found")
	ErrNoPDFs         = errors.New("no PDFs found")
	ErrNoUsablePapers = errors.New("no paper could be ingested")
)
