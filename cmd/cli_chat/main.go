package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"fintrait-chat/internal/backend"
	"fintrait-chat/internal/config"
	"fintrait-chat/internal/domain"
	"fintrait-chat/internal/service"
)

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	client := backend.NewHTTPClient(cfg.AssessmentBaseURL, logger)
	ctrl := service.NewConversationController(client, nil, nil, logger)

	// Si el bootstrap falla seguimos con identificadores vacios: el backend
	// decide que hacer con ellos. No hay retry.
	if err := ctrl.StartSession(ctx); err != nil {
		fmt.Println("Aviso: no se pudo iniciar sesion con el backend; continuando sin identificadores.")
	}

	fmt.Println("===== Chat de Perfil Financiero =====")
	fmt.Println("Comandos: 'resumen' muestra promedios, 'persona' genera el perfil, 'salir' termina.")

	for {
		fmt.Print("Tu > ")
		text, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		switch {
		case strings.EqualFold(text, "salir") || strings.EqualFold(text, "exit"):
			fmt.Println("Saliendo del chat...")
			return
		case strings.EqualFold(text, "resumen"):
			printSummary(ctrl.Snapshot())
			continue
		case strings.EqualFold(text, "persona"):
			runPersona(ctx, ctrl)
			continue
		}

		snap, err := ctrl.SendMessage(ctx, text)
		if errors.Is(err, service.ErrConversationTerminated) {
			fmt.Println("La conversacion ya termino; solo quedan disponibles 'resumen' y 'persona'.")
			continue
		}

		printTurn(snap)

		if snap.Terminated {
			fmt.Println("\n--- La evaluacion ha concluido. Escribe 'resumen' o 'persona' para ver resultados. ---")
		}
	}
}

// printTurn muestra la ultima respuesta del asistente y las tarjetas de
// evaluacion visibles para el mensaje de usuario recien enviado.
func printTurn(snap domain.ConversationState) {
	if len(snap.Messages) == 0 {
		return
	}

	last := snap.Messages[len(snap.Messages)-1]
	if last.Role == domain.RoleAssistant {
		fmt.Printf("Asistente > %s\n", last.Content)
	}

	for i := len(snap.Messages) - 1; i >= 0; i-- {
		msg := snap.Messages[i]
		if msg.Role != domain.RoleUser {
			continue
		}
		visible := service.AssessmentsVisibleFor(msg, snap.Messages, snap.Assessments)
		for _, a := range visible {
			line := "  [" + a.Trait + "]"
			if a.Score != nil {
				line += fmt.Sprintf(" score=%.1f", *a.Score)
			}
			if a.Confidence != nil {
				line += fmt.Sprintf(" confianza=%.1f", *a.Confidence)
			}
			if a.Sentence != "" {
				line += " " + a.Sentence
			}
			fmt.Println(line)
		}
		break
	}
}

func printSummary(snap domain.ConversationState) {
	summaries := service.AggregateScores(snap.Assessments)
	if len(summaries) == 0 {
		fmt.Println("Todavia no hay rasgos puntuados.")
		return
	}
	fmt.Println("--- Resumen por rasgo ---")
	for _, s := range summaries {
		fmt.Printf("%-28s score=%.2f confianza=%.2f (n=%d)\n", s.Trait, s.Score, s.Confidence, s.Samples)
	}
}

func runPersona(ctx context.Context, ctrl *service.ConversationController) {
	fmt.Println("Generando perfil de persona. Por favor, espere...")
	persona, err := ctrl.GeneratePersona(ctx)
	if err != nil {
		fmt.Printf("Error generando persona: %v\n", err)
		return
	}
	fmt.Println("--- Perfil generado ---")
	fmt.Println(persona)
}
