package i18n

import "golang.org/x/text/language"

var catalogs = map[language.Tag]map[string]string{
	language.English: {
		"user_not_found":         "User with given credentials does not exist.",
		"invalid_credentials":    "Wrong password.",
		"account_deactivated":    "This user has been deactivated.",
		"token_expired":          "Authentication error. The token has expired.",
		"token_malformed":        "Authentication error. Unable to decode the token.",
		"refresh_revoked":        "Authentication error. This refresh token is no longer valid.",
		"not_authenticated":      "Authentication credentials were not provided.",
		"access_token_required":  "Invalid token. An ACCESS TOKEN is required.",
		"invalid_token_type":     "Invalid token. A REFRESH TOKEN is required.",
		"profile_exists":         "This profile already exists.",
		"permission_denied":      "You do not have permission to perform this action.",
		"restricted_field":       `Only admin can change fields "id", "role", "is_active".`,
		"not_found":              "Not found.",
		"invalid_role_parameter": "Role parameter was not passed in URL. Use /users?role=1 to get clients profiles, or /users?role=2 to get staff profiles.",
		"invalid_body":           "Malformed request body.",
		"rate_limited":           "Too many requests.",

		"required":          "This field is required.",
		"email":             "Enter a valid email address.",
		"email_taken":       "User with this email already exists.",
		"too_short":         "Ensure this field has at least 8 characters.",
		"too_long":          "Ensure this field is not too long.",
		"numeric_name":      "Name could not be an integer.",
		"invalid":           "Invalid value.",
		"month_choice":      "Month must be: [1, 6, 12].",
		"date_format":       "Date must be a string in YYYY-MM-DD format.",
		"role_choice":       "Role must be 1 (client) or 2 (staff).",
		"role_mismatch":     "Role must match the profile type.",
		"unknown_reference": "Referenced object does not exist.",
	},
	language.Russian: {
		"user_not_found":         "Пользователь с указанными данными не найден.",
		"invalid_credentials":    "Неверный пароль.",
		"account_deactivated":    "Данный пользователь деактивирован.",
		"token_expired":          "Ошибка аутентификации. Истек срок действия токена.",
		"token_malformed":        "Ошибка аутентификации. Невозможно декодировать токен.",
		"refresh_revoked":        "Ошибка аутентификации. Этот REFRESH TOKEN больше не действителен.",
		"not_authenticated":      "Учетные данные не были предоставлены.",
		"access_token_required":  "Неверный токен. Необходим ACCESS TOKEN.",
		"invalid_token_type":     "Неверный токен. Необходим REFRESH TOKEN.",
		"profile_exists":         "Такой профиль уже существует.",
		"permission_denied":      "У вас нет прав для выполнения этого действия.",
		"restricted_field":       `Только администратор может изменять поля "id", "role", "is_active".`,
		"not_found":              "Не найдено.",
		"invalid_role_parameter": "Параметр role не передан. Используйте /users?role=1 для профилей клиентов или /users?role=2 для профилей сотрудников.",
		"invalid_body":           "Некорректное тело запроса.",
		"rate_limited":           "Слишком много запросов.",

		"required":          "Обязательное поле.",
		"email":             "Введите корректный адрес электронной почты.",
		"email_taken":       "Пользователь с таким email уже существует.",
		"too_short":         "Убедитесь, что поле содержит не менее 8 символов.",
		"too_long":          "Убедитесь, что поле не слишком длинное.",
		"numeric_name":      "Имя не может быть числом.",
		"invalid":           "Недопустимое значение.",
		"month_choice":      "Месяц должен быть: [1, 6, 12].",
		"date_format":       "Дата должна быть строкой в формате YYYY-MM-DD.",
		"role_choice":       "Роль должна быть 1 (клиент) или 2 (сотрудник).",
		"role_mismatch":     "Роль должна соответствовать типу профиля.",
		"unknown_reference": "Связанный объект не существует.",
	},
}
