package server

import "github.com/gofiber/fiber/v2"

// The marketing pages are static copy; the frontend renders them from these
// payloads so copy edits never need a client redeploy.

// GetHomePage returns the landing page content.
func (s *Server) GetHomePage(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"title":    "Bienestar Integral",
		"subtitle": "Coaching de bienestar para una vida en equilibrio",
		"sections": []fiber.Map{
			{
				"heading": "Acompañamiento personalizado",
				"body":    "Sesiones individuales enfocadas en tus objetivos de salud, descanso y manejo del estrés.",
			},
			{
				"heading": "Hábitos sostenibles",
				"body":    "Pequeños cambios consistentes en alimentación, movimiento y descanso que se mantienen en el tiempo.",
			},
		},
	})
}

// GetApproachPage returns the methodology page content.
func (s *Server) GetApproachPage(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"title": "Nuestro enfoque",
		"pillars": []fiber.Map{
			{"name": "Nutrición consciente", "description": "Comer con atención, sin dietas restrictivas."},
			{"name": "Movimiento", "description": "Actividad física adaptada a tu punto de partida."},
			{"name": "Descanso", "description": "Higiene del sueño y pausas reales durante el día."},
			{"name": "Gestión emocional", "description": "Herramientas prácticas para el estrés cotidiano."},
		},
	})
}

// GetContactPage returns the contact page content.
func (s *Server) GetContactPage(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"title": "Contacto",
		"email": "hola@bienestarintegral.example",
		"note":  "Respondemos en un plazo de 48 horas hábiles.",
	})
}
