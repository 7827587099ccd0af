package i18n

var messagesES = map[string]string{
	KeyEmailAlreadyExists:   "Ya existe un usuario con este correo electrónico.",
	KeyInvalidOldPassword:   "La contraseña anterior es incorrecta.",
	KeyUpdatePasswordFailed: "No se pudo actualizar la contraseña. Inténtalo de nuevo.",
	KeyUserNotFound:         "Usuario no encontrado.",
	KeyPasswordUpdated:      "Contraseña actualizada correctamente.",

	KeyInvalidCredentials: "Correo electrónico o contraseña no válidos.",
	KeyUnauthorized:       "Se requiere autenticación.",

	KeyInvalidRequestBody: "Cuerpo de la solicitud no válido.",
	KeyValidationFailed:   "El campo %s no cumple la regla de validación %q.",
	KeyRateLimitExceeded:  "Se superó el límite de solicitudes. Inténtalo más tarde.",
	KeyNotFound:           "Ninguna ruta coincide con %s.",
	KeyMethodNotAllowed:   "El método %s no está permitido para esta ruta.",
	KeyInternal:           "Algo salió mal de nuestro lado.",
}
