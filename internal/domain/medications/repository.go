package medications

import "context"

// Store es el contrato único de persistencia. Los dos backends
// (sqlite embebido y flat store sobre Redis) lo implementan completo;
// la lógica de negocio nunca vuelve a preguntar por el backend.
//
// Garantías del contrato:
//   - GetAll/GetByDate/GetWithStatusForDate ordenan por Time ascendente.
//   - "Activo en fecha": startDate <= date y (endDate nulo o >= date).
//   - Delete cascadea el borrado de todas las filas de status.
//   - UpsertStatus deja a lo sumo una fila por (medicationID, date);
//     setea TakenAt=ahora cuando taken=true y lo anula cuando no.
//   - Leer nunca crea filas de status (sin fila => "pendiente, sin registro").
type Store interface {
	Init(ctx context.Context) error
	Close() error

	GetAll(ctx context.Context) ([]Medication, error)
	GetByID(ctx context.Context, id int64) (Medication, error)
	Add(ctx context.Context, in NewMedication) (int64, error)
	Update(ctx context.Context, id int64, in UpdateInput) error
	Delete(ctx context.Context, id int64) error
	GetByDate(ctx context.Context, date string) ([]Medication, error)

	GetStatus(ctx context.Context, medicationID int64, date string) (*Status, error)
	GetAllStatusesForDate(ctx context.Context, date string) ([]Status, error)
	UpsertStatus(ctx context.Context, medicationID int64, date string, taken bool) (Status, error)
	GetWithStatusForDate(ctx context.Context, date string) ([]WithStatus, error)

	Seed(ctx context.Context) error
}
