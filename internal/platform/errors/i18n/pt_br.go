package i18n

var ptBRMessages = map[Code]string{
	CodeUnknown:              "Ocorreu um erro inesperado.",
	CodeUnknownCategory:      `Categoria de documento desconhecida "{{.Category}}". Use job, request ou certificate.`,
	CodeInvalidYear:          "O ano {{.Year}} está fora do intervalo suportado 1000-9999.",
	CodeMalformedIdentifier:  "O identificador {{.Value}} está malformado: {{.Reason}}.",
	CodeTransactionConflict:  "O armazenamento de numeração está ocupado. Tente novamente.",
	CodeSequenceExhausted:    "Não há mais números de {{.Category}} disponíveis para {{.Year}}.",
	CodeDuplicateIdentifier:  "O identificador alocado já está em uso por outro documento.",
	CodeDocumentTitleEmpty:   "O título é obrigatório.",
	CodeDocumentInvalidQuery: "A consulta de documentos é inválida: {{.Reason}}.",
	CodeNotFound:             "O registro solicitado não foi encontrado.",
	CodeInvalidRequest:       "A requisição é inválida: {{.Reason}}.",
}
