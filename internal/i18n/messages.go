package i18n

const (
	KeyGenerationFailed   = "error.generation_failed"
	KeyReminderFailed     = "error.reminder_failed"
	KeyOCRFailed          = "error.ocr_failed"
	KeyInvalidRequest     = "error.invalid_request"
	KeyNotFound           = "error.not_found"
	KeyConflict           = "error.conflict"
	KeyRateLimited        = "error.rate_limited"
	KeyInternal           = "error.internal"
	KeyReminderSubject    = "reminder.subject"
	KeyStatusDraft        = "status.draft"
	KeyStatusSent         = "status.sent"
	KeyStatusPaid         = "status.paid"
	KeyStatusOverdue      = "status.overdue"
	KeyStatusVoid         = "status.void"
	KeyReportRevenue      = "report.monthly_revenue"
	KeyReportStatus       = "report.status_breakdown"
	KeyDashboardRevenue   = "dashboard.total_revenue"
	KeyDashboardPending   = "dashboard.pending_amount"
	KeyDashboardOverdue   = "dashboard.overdue_count"
	KeyDashboardClients   = "dashboard.client_count"
	KeyPlanCurrent        = "plan.current"
	KeyPlanSelected       = "plan.selected"
	KeyReminderCopied     = "reminder.copied"
	KeyOCRUnsupportedFile = "ocr.unsupported_file"
)

var tables = map[Language]map[string]string{
	English: {
		KeyGenerationFailed:   "An unexpected error occurred. Please try again.",
		KeyReminderFailed:     "Error generating reminder",
		KeyOCRFailed:          "Error extracting text",
		KeyInvalidRequest:     "The request is invalid.",
		KeyNotFound:           "The requested resource was not found.",
		KeyConflict:           "The request conflicts with the current state.",
		KeyRateLimited:        "Too many requests. Please wait and try again.",
		KeyInternal:           "Something went wrong on our side.",
		KeyReminderSubject:    "Invoice Reminder: %s",
		KeyStatusDraft:        "Draft",
		KeyStatusSent:         "Sent",
		KeyStatusPaid:         "Paid",
		KeyStatusOverdue:      "Overdue",
		KeyStatusVoid:         "Void",
		KeyReportRevenue:      "Monthly Revenue",
		KeyReportStatus:       "Invoices by Status",
		KeyDashboardRevenue:   "Total Revenue",
		KeyDashboardPending:   "Pending Amount",
		KeyDashboardOverdue:   "Overdue Invoices",
		KeyDashboardClients:   "Clients",
		KeyPlanCurrent:        "Current Plan",
		KeyPlanSelected:       "Plan selected",
		KeyReminderCopied:     "Copied to clipboard!",
		KeyOCRUnsupportedFile: "Please upload an image file.",
	},
	Portuguese: {
		KeyGenerationFailed:   "Ocorreu um erro inesperado. Tente novamente.",
		KeyReminderFailed:     "Erro ao gerar lembrete",
		KeyOCRFailed:          "Erro ao extrair texto",
		KeyInvalidRequest:     "A requisição é inválida.",
		KeyNotFound:           "O recurso solicitado não foi encontrado.",
		KeyConflict:           "A requisição conflita com o estado atual.",
		KeyRateLimited:        "Muitas requisições. Aguarde e tente novamente.",
		KeyInternal:           "Algo deu errado do nosso lado.",
		KeyReminderSubject:    "Lembrete de fatura: %s",
		KeyStatusDraft:        "Rascunho",
		KeyStatusSent:         "Enviada",
		KeyStatusPaid:         "Paga",
		KeyStatusOverdue:      "Vencida",
		KeyStatusVoid:         "Anulada",
		KeyReportRevenue:      "Receita Mensal",
		KeyReportStatus:       "Faturas por Status",
		KeyDashboardRevenue:   "Receita Total",
		KeyDashboardPending:   "Valor Pendente",
		KeyDashboardOverdue:   "Faturas Vencidas",
		KeyDashboardClients:   "Clientes",
		KeyPlanCurrent:        "Plano Atual",
		KeyPlanSelected:       "Plano selecionado",
		KeyReminderCopied:     "Copiado para a área de transferência!",
		KeyOCRUnsupportedFile: "Envie um arquivo de imagem.",
	},
	Spanish: {
		KeyGenerationFailed:   "Ocurrió un error inesperado. Inténtalo de nuevo.",
		KeyReminderFailed:     "Error al generar el recordatorio",
		KeyOCRFailed:          "Error al extraer el texto",
		KeyInvalidRequest:     "La solicitud no es válida.",
		KeyNotFound:           "No se encontró el recurso solicitado.",
		KeyConflict:           "La solicitud entra en conflicto con el estado actual.",
		KeyRateLimited:        "Demasiadas solicitudes. Espera e inténtalo de nuevo.",
		KeyInternal:           "Algo salió mal de nuestro lado.",
		KeyReminderSubject:    "Recordatorio de factura: %s",
		KeyStatusDraft:        "Borrador",
		KeyStatusSent:         "Enviada",
		KeyStatusPaid:         "Pagada",
		KeyStatusOverdue:      "Vencida",
		KeyStatusVoid:         "Anulada",
		KeyReportRevenue:      "Ingresos Mensuales",
		KeyReportStatus:       "Facturas por Estado",
		KeyDashboardRevenue:   "Ingresos Totales",
		KeyDashboardPending:   "Monto Pendiente",
		KeyDashboardOverdue:   "Facturas Vencidas",
		KeyDashboardClients:   "Clientes",
		KeyPlanCurrent:        "Plan Actual",
		KeyPlanSelected:       "Plan seleccionado",
		KeyReminderCopied:     "¡Copiado al portapapeles!",
		KeyOCRUnsupportedFile: "Sube un archivo de imagen.",
	},
}
