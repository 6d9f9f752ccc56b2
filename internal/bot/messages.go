package bot

var messages = map[string]map[string]string{
	"fr": {
		"setup_title":          "Configuration du comptage",
		"setup_done":           "Le salon de comptage est prêt.",
		"status_title":         "État du comptage",
		"status_desc":          "Configuration actuelle et activité des dernières 24 heures.",
		"audit_title":          "Journal du comptage",
		"error_only_guild":     "Cette commande ne fonctionne que sur un serveur.",
		"error_not_configured": "Le comptage n'est pas configuré. Utilisez /configuration.",
		"error_invalid_emoji":  "L'émoji doit être un seul émoji, un émoji du serveur ou « no ».",
		"error_invalid_option": "Option invalide.",
		"error_failed":         "La configuration n'a pas pu être enregistrée.",
		"field_channel":        "Salon",
		"field_role":           "Rôle de sanction",
		"field_timeout":        "Durée de sanction",
		"field_emoji":          "Réaction",
		"field_current":        "Nombre actuel",
		"field_next":           "Prochain nombre",
		"field_last_poster":    "Dernier compteur",
		"field_accepted":       "Acceptés",
		"field_rejected":       "Refusés",
		"field_restored":       "Restaurés",
		"field_timed_out":      "Membres sanctionnés",
		"field_evaluator":      "Calculs utilisés",
		"field_event":          "Événement",
		"field_guild":          "Serveur",
		"field_member":         "Membre",
		"field_details":        "Détails",
		"value_minutes":        "%d min",
		"value_disabled":       "désactivée",
		"value_none":           "aucun",
	},
	"en": {
		"setup_title":          "Counting setup",
		"setup_done":           "The counting channel is ready.",
		"status_title":         "Counting status",
		"status_desc":          "Current configuration and activity over the last 24 hours.",
		"audit_title":          "Counting log",
		"error_only_guild":     "This command only works inside a server.",
		"error_not_configured": "Counting is not configured. Use /setup.",
		"error_invalid_emoji":  "The emoji must be a single emoji, a server emoji or \"no\".",
		"error_invalid_option": "Invalid option.",
		"error_failed":         "The configuration could not be saved.",
		"field_channel":        "Channel",
		"field_role":           "Timeout role",
		"field_timeout":        "Timeout length",
		"field_emoji":          "Reaction",
		"field_current":        "Current number",
		"field_next":           "Next number",
		"field_last_poster":    "Last counter",
		"field_accepted":       "Accepted",
		"field_rejected":       "Rejected",
		"field_restored":       "Restored",
		"field_timed_out":      "Members timed out",
		"field_evaluator":      "Evaluator budget",
		"field_event":          "Event",
		"field_guild":          "Server",
		"field_member":         "Member",
		"field_details":        "Details",
		"value_minutes":        "%d min",
		"value_disabled":       "disabled",
		"value_none":           "none",
	},
}

func tr(lang, key string) string {
	if table, ok := messages[lang]; ok {
		if value, ok := table[key]; ok {
			return value
		}
	}
	if value, ok := messages["en"][key]; ok {
		return value
	}
	return key
}
