package models

const (
	ContextEntrySeparator = "\n\n"
	DefaultTopK           = 3
)

var (
	ChatPromptTemplate = `You are a helpful visa assistant. Use this context about visa requirements:

%s
%s
User question: %s

Provide a helpful, concise answer based on the context above.`

	ChatFallbackPromptTemplate = `You are a helpful visa assistant. User question: %s
%s
Provide a helpful answer about visa applications based on your general knowledge. Note: no matching official requirements were found, so answer from general knowledge and say so.`

	AssessmentPromptTemplate = `You are a visa application expert. Use the following official visa requirements as context:

%s

IMPORTANT: The applicant is applying for a %s visa to %s. Only use requirements and information specific to %s %s visa.

Visa Application Information:
%s

Based on this information:
1. Estimate the visa approval probability (as a percentage)
2. List any missing documents or risk factors
3. Provide professional advice to improve approval chances
4. Be specific to %s %s visa requirements`

	AssessmentFallbackPromptTemplate = `You are a visa application expert. Based on your knowledge:

The applicant is applying for a %s visa to %s.

Visa Application Information:
%s

Based on this information:
1. Estimate the visa approval probability (as a percentage)
2. List any missing documents or risk factors
3. Provide professional advice to improve approval chances
4. Be specific to %s %s visa requirements`

	UploadedDocSection = `
Applicant-provided document:
%s
`
)
