package semantic

import _ "embed"

//go:embed scripts/spacy_embedder.py
var embeddedPythonScript string

//go:embed scripts/requirements.txt
var embeddedRequirements string

const defaultRequirements = `spacy>=3.7.0,<4.0.0
numpy>=1.21.0`
