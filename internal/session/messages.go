package session

import "fmt"

// Сообщения формы (pt-BR)
const (
	MsgNameInvalid  = "Nome deve ter pelo menos 2 caracteres."
	MsgPhoneInvalid = "Número inválido. Use o formato (XX) 9XXXX-XXXX."
	MsgEmailInvalid = "E-mail inválido."
	MsgStoreFailed  = "Erro ao salvar dados. Tente novamente."
)

// SuccessMessage - поздравление после сохранения заявки
func SuccessMessage(name, prizeCode string) string {
	return fmt.Sprintf("Parabéns, %s! Você ganhou 80%% de desconto! Seu código: %s", name, prizeCode)
}
