package task

// SeedTasks は起動時にストアへ投入する初期データを返す。
// 呼び出しごとに新しいスライスを返すので、呼び出し側で書き換えてよい。
func SeedTasks() []Task {
	return []Task{
		{ID: 1, Title: "Estudiar Python", Status: StatusPending},
		{ID: 2, Title: "Lavar la ropa", Status: StatusCompleted},
		{ID: 3, Title: "Leer un libro", Status: StatusPending},
		{ID: 4, Title: "Ir al gimnasio", Status: StatusCompleted},
		{ID: 5, Title: "Comprar comida", Status: StatusPending},
		{ID: 6, Title: "Limpiar el cuarto", Status: StatusPending},
		{ID: 7, Title: "Pagar cuentas", Status: StatusCompleted},
		{ID: 8, Title: "Llamar a mamá", Status: StatusPending},
		{ID: 9, Title: "Revisar correo", Status: StatusPending},
		{ID: 10, Title: "Lavar carro", Status: StatusPending},
	}
}
