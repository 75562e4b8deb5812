package checkout

import "slices"

// Region is one entry of the shipping catalogue offered by the address form.
type Region struct {
	Name     string   `json:"name"`
	Communes []string `json:"communes"`
}

var regions = []Region{
	{Name: "Región Metropolitana de Santiago", Communes: []string{
		"Cerrillos", "Cerro Navia", "Conchalí", "El Bosque", "Estación Central",
		"Huechuraba", "Independencia", "La Cisterna", "La Florida", "La Granja",
		"La Pintana", "La Reina", "Las Condes", "Lo Barnechea", "Lo Espejo",
		"Lo Prado", "Macul", "Maipú", "Ñuñoa", "Pedro Aguirre Cerda",
		"Peñalolén", "Providencia", "Pudahuel", "Quilicura", "Quinta Normal",
		"Recoleta", "Renca", "San Joaquín", "San Miguel", "San Ramón",
		"Santiago", "Vitacura", "Puente Alto", "Pirque", "San José de Maipo",
		"Colina", "Lampa", "Tiltil", "San Bernardo", "Buin", "Calera de Tango",
		"Paine", "Melipilla", "Alhué", "Curacaví", "María Pinto", "San Pedro",
		"Talagante", "El Monte", "Isla de Maipo", "Padre Hurtado", "Peñaflor",
	}},
	{Name: "Región de Valparaíso", Communes: []string{
		"Valparaíso", "Casablanca", "Concón", "Juan Fernández", "Puchuncaví",
		"Quintero", "Viña del Mar", "Isla de Pascua", "Los Andes", "Calle Larga",
		"Rinconada", "San Esteban", "La Ligua", "Cabildo", "Papudo", "Petorca",
		"Zapallar", "Quillota", "Calera", "Hijuelas", "La Cruz", "Nogales",
		"San Antonio", "Algarrobo", "Cartagena", "El Quisco", "El Tabo",
		"Santo Domingo", "San Felipe", "Catemu", "Llaillay", "Panquehue",
		"Putaendo", "Santa María", "Quilpué", "Limache", "Olmué", "Villa Alemana",
	}},
	{Name: "Región de Bío-Bío", Communes: []string{
		"Concepción", "Coronel", "Chiguayante", "Florida", "Hualqui", "Lota",
		"Penco", "San Pedro de la Paz", "Santa Juana", "Talcahuano", "Tomé",
		"Hualpén", "Lebu", "Arauco", "Cañete", "Contulmo", "Curanilahue",
		"Los Álamos", "Tirúa", "Los Ángeles", "Antuco", "Cabrero", "Laja",
		"Mulchén", "Nacimiento", "Negrete", "Quilaco", "Quilleco", "San Rosendo",
		"Santa Bárbara", "Tucapel", "Yumbel", "Alto Biobío",
	}},
	{Name: "Región del Maule", Communes: []string{
		"Talca", "Constitución", "Curepto", "Empedrado", "Maule", "Pelarco",
		"Pencahue", "Río Claro", "San Clemente", "San Rafael", "Cauquenes",
		"Chanco", "Pelluhue", "Curicó", "Hualañé", "Licantén", "Molina",
		"Rauco", "Romeral", "Sagrada Familia", "Teno", "Vichuquén", "Linares",
		"Colbún", "Longaví", "Parral", "Retiro", "San Javier", "Villa Alegre",
		"Yerbas Buenas",
	}},
	{Name: "Región de Antofagasta", Communes: []string{
		"Antofagasta", "Mejillones", "Sierra Gorda", "Taltal", "Calama",
		"Ollagüe", "San Pedro de Atacama", "Tocopilla", "María Elena",
	}},
}

// Regions returns a copy of the catalogue.
func Regions() []Region {
	out := make([]Region, len(regions))
	for i, r := range regions {
		out[i] = Region{Name: r.Name, Communes: slices.Clone(r.Communes)}
	}
	return out
}

// CommuneInRegion is true for any commune of a region outside the catalogue.
func CommuneInRegion(region, commune string) bool {
	for _, r := range regions {
		if r.Name == region {
			return slices.Contains(r.Communes, commune)
		}
	}
	return true
}
