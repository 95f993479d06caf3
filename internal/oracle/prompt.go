package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = `Tu es le moteur d'un jeu de stratégie géopolitique historique.
Tu réponds UNIQUEMENT avec un objet JSON valide, sans markdown ni explication.
Les textes narratifs sont rédigés en français.`

// BuildInitPrompt returns the system and user prompts for a game opening.
func BuildInitPrompt(country string) (system, user string) {
	user = fmt.Sprintf(`Initialise une partie en 1936 pour le pays : %s.

Structure EXACTE attendue :
{
  "date": "1 Janvier 1936",
  "message": "Texte d'ambiance...",
  "entities": [
    {"id": "city-paris", "name": "Paris", "type": "city", "owner": "France", "latitude": 48.85, "longitude": 2.35, "description": "Capitale"},
    {"id": "army-fr", "name": "Armée du Nord", "type": "army", "owner": "France", "latitude": 49.5, "longitude": 3.0, "strength": 100}
  ]
}
Génère au moins 5 villes majeures en Europe et 3 armées.
Les types autorisés sont city, army, base et battle.`, country)
	return systemPrompt, user
}

// BuildTurnPrompt returns the system and user prompts for a turn.
func BuildTurnPrompt(req TurnRequest) (system, user string, err error) {
	orders, err := json.Marshal(req.Orders)
	if err != nil {
		return "", "", fmt.Errorf("marshal orders: %w", err)
	}
	entities, err := json.Marshal(req.Entities)
	if err != nil {
		return "", "", fmt.Errorf("marshal entities: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Date actuelle : %s.\n", req.Date)
	fmt.Fprintf(&b, "Pays joueur : %s.\n", req.PlayerCountry)
	fmt.Fprintf(&b, "Actions du joueur : %s.\n", orders)
	if len(req.Threads) > 0 {
		b.WriteString("Conversations diplomatiques récentes :\n")
		for _, t := range req.Threads {
			fmt.Fprintf(&b, "- avec %s :\n", strings.Join(t.Participants, ", "))
			for _, m := range t.Messages {
				fmt.Fprintf(&b, "  %s : %q\n", m.Sender, m.Content)
			}
		}
	}
	fmt.Fprintf(&b, "Entités (simplifiées) : %s\n\n", entities)

	b.WriteString(`Simule le passage d'un mois (tour suivant).
1. Bouge les armées (les armées ennemies avancent vers les villes adverses).
2. Résous les combats quand une armée atteint une ville ennemie.
3. Génère des événements et réponds aux messages diplomatiques.

Structure EXACTE attendue :
{
  "newDate": "1 Fev 1936",
  "events": [{"title": "...", "description": "...", "sourceCountry": "...", "type": "war"}],
  "updatedEntities": [{"id": "army-fr", "latitude": 49.7, "longitude": 2.9, "owner": "France"}],
  "diplomaticResponses": [{"participants": ["Allemagne"], "response": "..."}]
}
updatedEntities peut être partiel : seuls les champs modifiés sont nécessaires, l'id est obligatoire.
Les types d'événements autorisés sont diplomacy, war, construction et info.`)

	return systemPrompt, b.String(), nil
}
